package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCallsChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tune.abp")
	require.NoError(t, os.WriteFile(path, []byte("X:1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	onChange := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Opts{
			Paths:   func() []string { return []string{path} },
			Changed: onChange,
		})
	}()

	// the watcher starts asynchronously, so keep writing until it sees one
	writeUntil(t, path, changed)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, Run(ctx, Opts{Paths: func() []string { return nil }}))
}

// writeUntil rewrites path until signal fires.
func writeUntil(t *testing.T, path string, signal <-chan struct{}) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-signal:
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("X:2\n"), 0o644))
		case <-deadline:
			t.Fatalf("no change reported for %s", path)
		}
	}
}

func TestRunWatchesFilesAddedByChanged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.abc")
	inc := filepath.Join(dir, "inc.abh")
	require.NoError(t, os.WriteFile(in, []byte("X:1\n"), 0o644))
	require.NoError(t, os.WriteFile(inc, []byte("T:t\n"), 0o644))

	var mu sync.Mutex
	paths := []string{in}
	changed := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Opts{
			Paths: func() []string {
				mu.Lock()
				defer mu.Unlock()
				return append([]string(nil), paths...)
			},
			Changed: func() {
				// the first run starts including inc.abh
				mu.Lock()
				if len(paths) == 1 {
					paths = append(paths, inc)
				}
				mu.Unlock()
				select {
				case changed <- struct{}{}:
				default:
				}
			},
		})
	}()

	writeUntil(t, in, changed)

	// let events from the input settle before touching only the include
	time.Sleep(300 * time.Millisecond)
	select {
	case <-changed:
	default:
	}

	writeUntil(t, inc, changed)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
