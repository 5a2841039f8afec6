package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJoinWithin(t *testing.T) {
	root := t.TempDir()

	got, err := JoinWithin(root, "Dungeons/Binaries/Win64")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(root, "Dungeons", "Binaries", "Win64"); got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	for _, bad := range []string{"../escape", "a/../../escape", "/etc/passwd"} {
		if _, err := JoinWithin(root, bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}

	// An empty name resolves to the root itself
	if got, err := JoinWithin(root, ""); err != nil || got != root {
		t.Fatalf("empty name: got %s, %v", got, err)
	}
}

func TestEnsureDirAndRemoveIfExists(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a", "b", "c.txt")

	if err := EnsureDirForFile(file); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirForFile(file); err != nil {
		t.Fatalf("EnsureDir must be idempotent: %v", err)
	}
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); err == nil {
		t.Fatal("expected error when path is a file")
	}
	if !FileExists(file) {
		t.Fatal("expected file to exist")
	}
	if err := RemoveIfExists(file); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(file); err != nil {
		t.Fatalf("removing a missing file must succeed: %v", err)
	}
}

func TestRetry(t *testing.T) {
	logger := NewDiscardLogger()
	calls := 0
	attempts, err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, 5, time.Millisecond, "flaky op", logger)
	if err != nil || attempts != 3 {
		t.Fatalf("got attempts=%d err=%v", attempts, err)
	}

	boom := errors.New("boom")
	calls = 0
	_, err = Retry(context.Background(), func() error {
		calls++
		return Permanent(boom)
	}, 5, time.Millisecond, "permanent op", logger)
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("permanent error should stop retries: calls=%d err=%v", calls, err)
	}

	calls = 0
	_, err = Retry(context.Background(), func() error {
		calls++
		return boom
	}, 2, time.Millisecond, "failing op", logger)
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("expected 3 attempts wrapping boom: calls=%d err=%v", calls, err)
	}
}
