// Package render invokes the external Manim renderer over a scratch scene
// file and locates the video it produced. The renderer is treated as a black
// box: sceneforge only sees the exit code and the combined output, which the
// repair classifier parses upstream.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"sceneforge/internal/logging"
)

// Request identifies one renderer invocation.
type Request struct {
	ScenePath string // scratch .py file holding the candidate
	EntryType string // Scene subclass to render
	OutputID  string // request id, names the output video
	MediaDir  string // renderer working/media directory
}

// Outcome is the observable result of one renderer invocation.
type Outcome struct {
	OK         bool          // renderer exited zero and the video was found
	ExitCode   int           // -1 when the process never ran or was killed
	Output     string        // combined stdout+stderr, possibly truncated
	Truncated  bool          // output hit the capture limit
	TimedOut   bool          // killed by the invocation deadline
	Duration   time.Duration // wall-clock render time
	VideoPath  string        // final video location, set only when OK
	Diagnostic string        // failure summary for classification and logs
}

// Renderer runs one candidate through the renderer.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Outcome, error)
}

// Options configures the Manim runner.
type Options struct {
	Binary         string // renderer executable, default "manim"
	Quality        string // e.g. "-qm"
	Format         string // e.g. "mp4"
	OutputDir      string // directory final videos are moved into
	Timeout        time.Duration
	MaxOutputBytes int64
}

// ManimRunner is the production Renderer: a subprocess per invocation with a
// hard deadline and bounded output capture.
type ManimRunner struct {
	opts Options
}

// NewManimRunner returns a runner with defaults filled in.
func NewManimRunner(opts Options) *ManimRunner {
	if opts.Binary == "" {
		opts.Binary = "manim"
	}
	if opts.Quality == "" {
		opts.Quality = "-qm"
	}
	if opts.Format == "" {
		opts.Format = "mp4"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 300 * time.Second
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = 1 << 20
	}
	return &ManimRunner{opts: opts}
}

// Render invokes the renderer over the scratch file and, on success, moves
// the produced video into the output directory as <OutputID>.mp4.
func (r *ManimRunner) Render(ctx context.Context, req Request) (*Outcome, error) {
	args := []string{
		r.opts.Quality,
		"--format=" + r.opts.Format,
		"--output_file", req.OutputID,
		"--media_dir", req.MediaDir,
		req.ScenePath,
		req.EntryType,
	}

	logging.RenderDebug("invoking renderer: %s %v (timeout=%s)", r.opts.Binary, args, r.opts.Timeout)

	execCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.opts.Binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: r.opts.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: r.opts.MaxOutputBytes}
	cmd.Stdout = stdoutLimited
	cmd.Stderr = stderrLimited

	started := time.Now()
	err := cmd.Run()

	outcome := &Outcome{
		ExitCode:  -1,
		Duration:  time.Since(started),
		Truncated: stdoutLimited.truncated || stderrLimited.truncated,
	}
	outcome.Output = combineOutput(stdoutBuf.String(), stderrBuf.String())

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			outcome.TimedOut = true
			outcome.Diagnostic = fmt.Sprintf("renderer timed out after %s", r.opts.Timeout)
			logging.Render("renderer killed (timeout) after %s for %s", r.opts.Timeout, req.OutputID)
			return outcome, nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			outcome.ExitCode = exitErr.ExitCode()
			outcome.Diagnostic = outcome.Output
			logging.Render("renderer exited %d for %s in %s", outcome.ExitCode, req.OutputID, outcome.Duration)
			return outcome, nil
		}
		return nil, fmt.Errorf("failed to run renderer: %w", err)
	}

	outcome.ExitCode = 0
	videoPath, err := LocateVideo(req.MediaDir, r.opts.OutputDir, req.ScenePath, req.OutputID)
	if err != nil {
		outcome.Diagnostic = err.Error()
		logging.Render("renderer succeeded but video missing for %s: %v", req.OutputID, err)
		return outcome, nil
	}

	outcome.OK = true
	outcome.VideoPath = videoPath
	logging.Render("rendered %s in %s -> %s", req.OutputID, outcome.Duration, videoPath)
	return outcome, nil
}

func combineOutput(stdout, stderr string) string {
	combined := stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += stderr
	}
	return combined
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		if _, err := lw.w.Write(p[:remaining]); err != nil {
			return 0, err
		}
		lw.written = lw.max
		return n, nil
	}
	if _, err := lw.w.Write(p); err != nil {
		return 0, err
	}
	lw.written += int64(n)
	return n, nil
}
