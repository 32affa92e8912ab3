package thumbnail

import (
	"context"
	"fmt"
	"os/exec"

	"hlswatch/logger"
)

// ExecExtractor is the default Extractor, invoking an external binary
// (ffmpeg by default) with (segment URL, output path) arguments. The
// context-driven kill-on-cancel discipline is carried over from
// handlers/ffmpeg_handler.go's client-disconnect goroutine, here keyed
// off the caller's context instead of an HTTP request context.
type ExecExtractor struct {
	BinaryPath string
	Args       []string // extra args inserted between -i <url> and the output path
	Log        logger.Logger
}

// NewExecExtractor builds an ExecExtractor invoking ffmpeg with a
// single-frame-capture argument set.
func NewExecExtractor(binaryPath string, log logger.Logger) *ExecExtractor {
	if binaryPath == "" {
		binaryPath = "/usr/local/bin/ffmpeg"
	}
	return &ExecExtractor{
		BinaryPath: binaryPath,
		Args:       []string{"-frames:v", "1", "-y"},
		Log:        log,
	}
}

// Capture runs the external tool. Any failure — missing binary,
// nonzero exit, context cancellation — is logged and returned as an
// error; the caller (Supervisor) is responsible for swallowing it
// silently per the "tolerate absence of the tool" contract.
func (e *ExecExtractor) Capture(ctx context.Context, segmentURL, outputPath string) error {
	args := append([]string{"-i", segmentURL}, e.Args...)
	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		case <-done:
		}
	}()
	defer close(done)

	if err := cmd.Run(); err != nil {
		if e.Log != nil {
			e.Log.Logf("thumbnail capture failed for %s: %v", segmentURL, err)
		}
		return fmt.Errorf("thumbnail capture: %w", err)
	}
	return nil
}
