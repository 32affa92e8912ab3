package thumbnail

import (
	"context"
	"testing"
	"time"
)

func TestCaptureSucceedsWithExitZeroBinary(t *testing.T) {
	e := NewExecExtractor("/bin/true", nil)
	err := e.Capture(context.Background(), "https://example.com/seg.ts", "/tmp/out.jpg")
	if err != nil {
		t.Fatalf("expected success with /bin/true, got %v", err)
	}
}

func TestCaptureFailsSilentlyReturnsError(t *testing.T) {
	e := NewExecExtractor("/bin/false", nil)
	err := e.Capture(context.Background(), "https://example.com/seg.ts", "/tmp/out.jpg")
	if err == nil {
		t.Fatalf("expected an error from /bin/false")
	}
}

func TestCaptureHonorsCancellation(t *testing.T) {
	e := NewExecExtractor("/bin/sleep", nil)
	e.Args = []string{"5"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.Capture(ctx, "unused", "unused")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected an error when the process is killed by cancellation")
	}
	if elapsed > 2*time.Second {
		t.Fatalf("expected the process to be killed promptly, took %s", elapsed)
	}
}
