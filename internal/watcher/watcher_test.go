package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swissarmyhammer-go/swissarmyhammer/internal/catalog"
)

// waitFor polls cond until it reports true or the deadline elapses, failing
// the test otherwise. Filesystem event delivery and the debounce window
// make exact timing unpredictable, so tests poll rather than sleep once.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

// TestLiveReloadAddAndRemove covers spec §8 scenario 6: adding a prompt
// under the project tier resolves within one debounce interval, and
// removing it makes subsequent lookups fail again.
func TestLiveReloadAddAndRemove(t *testing.T) {
	projectDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "prompts"), 0o755))

	store := catalog.NewStore()
	loader := &catalog.Loader{ProjectDir: projectDir}
	w, err := New(loader, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watcher publishes one snapshot before subscribing, so the store
	// is never left holding the zero-value Snapshot from NewStore.
	waitFor(t, time.Second, func() bool {
		return store.Load().Generation > 0
	})

	fooPath := filepath.Join(projectDir, "prompts", "foo.md")
	require.NoError(t, os.WriteFile(fooPath, []byte("---\ntitle: Foo\n---\nfoo body"), 0o644))

	waitFor(t, 2*time.Second, func() bool {
		_, ok := store.Load().Prompt("foo")
		return ok
	})
	p, ok := store.Load().Prompt("foo")
	require.True(t, ok)
	assert.Equal(t, "foo body", p.Template)

	require.NoError(t, os.Remove(fooPath))

	waitFor(t, 2*time.Second, func() bool {
		_, ok := store.Load().Prompt("foo")
		return !ok
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}
