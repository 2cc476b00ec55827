// Package logging provides the categorized structured-logging sink for the
// sceneforge pipeline. Every component logs through a named zap logger; a
// category can be silenced wholesale from config. The pipeline never writes
// to the console directly.
package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies one pipeline subsystem.
type Category string

const (
	CategoryPipeline Category = "pipeline" // supervisor, attempts, escalation
	CategorySanitize Category = "sanitize" // fence/character cleanup
	CategoryValidate Category = "validate" // structural contract checks
	CategorySafety   Category = "safety"   // boundary clamp injection
	CategoryRepair   Category = "repair"   // tier application
	CategoryRender   Category = "render"   // renderer subprocess
	CategoryCompose  Category = "compose"  // storyboard decompose/merge
	CategoryLLM      Category = "llm"      // generation service calls
	CategoryStore    Category = "store"    // artifact audit store
)

// Options mirrors config.LoggingConfig to avoid a circular import.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	Categories map[string]bool // nil = all enabled
}

var (
	mu      sync.RWMutex
	root    *zap.SugaredLogger
	nop     = zap.NewNop().Sugar()
	enabled map[string]bool
)

// Init builds the shared zap core. Safe to call more than once; the last
// call wins. Before Init, all loggers are no-ops.
func Init(opts Options) error {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(opts.Format, "console") || opts.Format == "" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level))

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger.Sugar()
	enabled = opts.Categories
	return nil
}

// InitWith installs an externally built logger. Used by tests to capture
// output, and by callers that already own a zap core.
func InitWith(logger *zap.Logger, categories map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	root = logger.Sugar()
	enabled = categories
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Desugar().Sync()
	}
}

// Get returns the logger for a category, or a no-op logger when the category
// is disabled or Init has not run.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return nop
	}
	if enabled != nil {
		if on, ok := enabled[string(cat)]; ok && !on {
			return nop
		}
	}
	return root.Named(string(cat))
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Pipeline logs at info level to the pipeline category.
func Pipeline(format string, args ...any) { Get(CategoryPipeline).Infof(format, args...) }

// PipelineDebug logs at debug level to the pipeline category.
func PipelineDebug(format string, args ...any) { Get(CategoryPipeline).Debugf(format, args...) }

// Render logs at info level to the render category.
func Render(format string, args ...any) { Get(CategoryRender).Infof(format, args...) }

// RenderDebug logs at debug level to the render category.
func RenderDebug(format string, args ...any) { Get(CategoryRender).Debugf(format, args...) }

// Repair logs at info level to the repair category.
func Repair(format string, args ...any) { Get(CategoryRepair).Infof(format, args...) }

// Compose logs at info level to the compose category.
func Compose(format string, args ...any) { Get(CategoryCompose).Infof(format, args...) }

// LLM logs at info level to the llm category.
func LLM(format string, args ...any) { Get(CategoryLLM).Infof(format, args...) }

// LLMDebug logs at debug level to the llm category.
func LLMDebug(format string, args ...any) { Get(CategoryLLM).Debugf(format, args...) }

// LLMWarn logs at warn level to the llm category.
func LLMWarn(format string, args ...any) { Get(CategoryLLM).Warnf(format, args...) }

// Store logs at info level to the store category.
func Store(format string, args ...any) { Get(CategoryStore).Infof(format, args...) }
