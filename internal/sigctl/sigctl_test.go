package sigctl

import (
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestContextCancelsOnSIGINT(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := Context(log)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("context not canceled within 1s of SIGINT")
	}
}

func TestStopDetachesHandlerAndCancels(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := Context(log)
	stop()

	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
	if ctx.Err() == nil {
		t.Fatalf("stop() should cancel the returned context")
	}
}
