package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sceneforge/internal/config"
	"sceneforge/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	outputDir  string

	cfg *config.Config
)

const version = "1.0.0"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sceneforge",
	Short: "sceneforge - prompt-to-animation rendering pipeline",
	Long: `sceneforge turns natural-language prompts into rendered Manim animations.

Generated code is treated as untrusted text: it is sanitized, structurally
validated, hardened with boundary clamps, and rendered under a supervisor
that repairs and retries failing candidates through an escalating ladder of
deterministic rewrites.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if outputDir != "" {
			cfg.Render.OutputDir = outputDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return logging.Init(logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Categories: cfg.Logging.Categories,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sceneforge version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sceneforge %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sceneforge.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "override the video output directory")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
