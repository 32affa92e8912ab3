// Package thumbnail delegates preview-image capture to an external
// media-processing binary, grounded on the teacher's
// handlers/ffmpeg_handler.go exec.Command usage — simplified from a
// streaming stdin/stdout transcode to a single fire-and-forget
// (segment URL, output path) invocation, since thumbnailing here
// captures one frame rather than relaying a live feed.
package thumbnail

import "context"

// Extractor captures a single preview frame from a segment URL into an
// output file path. Implementations must tolerate a missing or
// misbehaving external tool and report a failed capture as an error;
// the Supervisor discards that error and records no timeline event, so
// thumbnail capture never destabilizes stream monitoring.
type Extractor interface {
	Capture(ctx context.Context, segmentURL, outputPath string) error
}
