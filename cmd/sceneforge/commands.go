package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"sceneforge/internal/artifact"
	"sceneforge/internal/llm"
	"sceneforge/internal/logging"
	"sceneforge/internal/pipeline"
	"sceneforge/internal/prompt"
	"sceneforge/internal/render"
	"sceneforge/internal/storyboard"
)

var (
	noOptimize  bool
	noNarration bool
	entryType   string
	workers     int
	historyN    int
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate and render a single animation from a prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		gen, store, err := buildGenerator()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		res, err := gen.Generate(ctx, pipeline.Request{
			Prompt:    strings.Join(args, " "),
			EntryType: entryType,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Rendered %s (attempts: %d, repair tier: %s)\n", res.VideoPath, res.Attempts, res.TierReached)
		return nil
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose [prompt]",
	Short: "Generate a narrated, multi-segment animation from a prompt",
	Long: `Generates a timestamped narration script for the prompt, builds one
animation per script segment, and composes the segments into a single video
on a shared timeline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		gen, store, err := buildGenerator()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		topic := strings.Join(args, " ")
		script, err := gen.Scriptwriter.Write(ctx, topic)
		if err != nil {
			return fmt.Errorf("%w: %v", pipeline.ErrGenerationUnavailable, err)
		}

		composer := &storyboard.Composer{
			Source:            gen,
			Supervisor:        gen.Supervisor,
			EntryType:         cfg.Generation.EntryType,
			Workers:           workers,
			InterSegmentPause: cfg.Compose.InterSegmentPause,
		}
		res, err := composer.Compose(ctx, topic, script)
		if err != nil {
			return err
		}

		if store != nil {
			if err := store.Save(artifact.Record{
				RequestID:   res.RequestID,
				Prompt:      topic,
				EntryType:   cfg.Generation.EntryType,
				FinalSource: res.Source,
				VideoPath:   res.VideoPath,
				TierReached: res.TierReached,
				Attempts:    res.Attempts,
				Succeeded:   true,
			}); err != nil {
				logging.Store("failed to record composition %s: %v", res.RequestID, err)
			}
		}

		fmt.Printf("Composed %d segments into %s (attempts: %d, repair tier: %s)\n",
			len(res.Segments), res.VideoPath, res.Attempts, res.TierReached)
		return nil
	},
}

var scriptCmd = &cobra.Command{
	Use:   "script [topic]",
	Short: "Generate a timestamped narration script without rendering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, err := buildClient()
		if err != nil {
			return err
		}
		writer := prompt.NewScriptwriter(client, cfg.Generation.MinScriptLen)
		script, err := writer.Write(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(script)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent generations from the audit store",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := artifact.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.Recent(historyN)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No generations recorded yet.")
			return nil
		}
		for _, rec := range recs {
			status := "failed"
			if rec.Succeeded {
				status = "ok"
			}
			fmt.Printf("%s  %-6s  attempts=%d  tier=%-21s  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"), status, rec.Attempts, rec.TierReached,
				truncate(rec.Prompt, 60))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip prompt enhancement")
	generateCmd.Flags().BoolVar(&noNarration, "no-narration", false, "skip narration script alignment")
	generateCmd.Flags().StringVar(&entryType, "entry-type", "", "override the Scene subclass name")
	composeCmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "skip prompt enhancement")
	composeCmd.Flags().IntVar(&workers, "workers", 0, "concurrent segment generations (default from config)")
	historyCmd.Flags().IntVarP(&historyN, "limit", "n", 20, "number of records to show")
}

func buildClient() (llm.Client, error) {
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, err
	}
	return llm.New(llm.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  timeout,
	})
}

func buildGenerator() (*pipeline.Generator, *artifact.Store, error) {
	client, err := buildClient()
	if err != nil {
		return nil, nil, err
	}

	if noOptimize {
		cfg.Generation.OptimizePrompt = false
	}
	if noNarration {
		cfg.Generation.NarrationScript = false
	}
	if workers < 1 {
		workers = cfg.Compose.Workers
	}

	renderTimeout, err := cfg.RenderTimeout()
	if err != nil {
		return nil, nil, err
	}

	store, err := artifact.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	gen := &pipeline.Generator{
		Client:       client,
		Optimizer:    prompt.NewOptimizer(client),
		Scriptwriter: prompt.NewScriptwriter(client, cfg.Generation.MinScriptLen),
		Supervisor: &pipeline.Supervisor{
			Renderer: render.NewManimRunner(render.Options{
				Binary:         cfg.Render.Binary,
				Quality:        cfg.Render.Quality,
				Format:         cfg.Render.Format,
				OutputDir:      cfg.Render.OutputDir,
				Timeout:        renderTimeout,
				MaxOutputBytes: cfg.Render.MaxOutputBytes,
			}),
			WorkDir:     cfg.Render.OutputDir,
			MaxAttempts: cfg.Pipeline.MaxAttempts,
			KeepScratch: cfg.Pipeline.KeepScratch,
		},
		Store:  store,
		Config: cfg,
	}
	return gen, store, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
