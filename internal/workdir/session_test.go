package workdir

import (
	"os"
	"strings"
	"testing"
)

func TestSessionsAreUnique(t *testing.T) {
	base := t.TempDir()
	first, err := NewSession(base)
	if err != nil {
		t.Fatalf("first session: %v", err)
	}
	defer first.Cleanup()

	second, err := NewSession(base)
	if err != nil {
		t.Fatalf("second session: %v", err)
	}
	defer second.Cleanup()

	if first.Root == second.Root {
		t.Fatal("concurrent sessions share a directory")
	}
	if first.ID == second.ID {
		t.Fatal("concurrent sessions share an id")
	}
}

func TestChunkDirUnderRoot(t *testing.T) {
	session, err := NewSession(t.TempDir())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Cleanup()

	if !strings.HasPrefix(session.ChunkDir(), session.Root) {
		t.Fatalf("chunk dir %s escapes session root %s", session.ChunkDir(), session.Root)
	}
}

func TestCleanupRemovesDirectory(t *testing.T) {
	session, err := NewSession(t.TempDir())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := session.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(session.Root); !os.IsNotExist(err) {
		t.Fatalf("session root still present: %v", err)
	}
}

func TestCloseKeepsDirectory(t *testing.T) {
	session, err := NewSession(t.TempDir())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(session.Root); err != nil {
		t.Fatalf("session root removed by Close: %v", err)
	}
	_ = os.RemoveAll(session.Root)
}
