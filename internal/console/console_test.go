package console

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestIsCharDevice(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	test.That(t, isCharDevice(f), test.ShouldBeFalse)
	test.That(t, isCharDevice(nil), test.ShouldBeFalse)
}

func TestNotifyShutdown(t *testing.T) {
	ctx, cancel := NotifyShutdown(context.Background())
	defer cancel()

	test.That(t, syscall.Kill(os.Getpid(), syscall.SIGTERM), test.ShouldBeNil)
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
