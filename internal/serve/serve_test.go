package serve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent(t *testing.T) {
	cases := []struct {
		path   string
		ignore bool
	}{
		{"articles/2024-01-01-post.md", false},
		{"articles/2024-01-01-post", false},
		{"articles/pic.png", false},
		{"articles/.post.md.swp", true},
		{"articles/post.md.swp", true},
		{"articles/post.md.swx", true},
		{"articles/post.md~", true},
		{"articles/.#post.md", true},
		{"articles/#post.md#", true},
		{"articles/.hidden", true},
		{"articles/Thumbs.db", true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ignore, shouldIgnoreEvent(tc.path), "path %q", tc.path)
	}
}

func TestDebouncer_CoalescesBursts(t *testing.T) {
	rebuildReq, trigger, _ := setupRebuildDebouncer()

	for range 5 {
		trigger()
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-rebuildReq:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a rebuild request after the quiet window")
	}

	// The burst collapses into a single request.
	select {
	case <-rebuildReq:
		t.Fatal("expected no second rebuild request")
	case <-time.After(2 * debounceQuiet):
	}
}

func TestDebouncer_SeparateBurstsFireSeparately(t *testing.T) {
	rebuildReq, trigger, _ := setupRebuildDebouncer()

	trigger()
	select {
	case <-rebuildReq:
	case <-time.After(2 * time.Second):
		t.Fatal("expected first rebuild request")
	}

	trigger()
	select {
	case <-rebuildReq:
	case <-time.After(2 * time.Second):
		t.Fatal("expected second rebuild request")
	}
}

func TestDebouncer_StopSilencesPendingTimer(t *testing.T) {
	rebuildReq, trigger, stop := setupRebuildDebouncer()

	// A timer armed inside the quiet window must not send once the channel is
	// closed during shutdown.
	trigger()
	stop()
	close(rebuildReq)
	time.Sleep(2 * debounceQuiet)

	// A trigger arriving after stop is a no-op as well.
	trigger()
	time.Sleep(2 * debounceQuiet)

	_, ok := <-rebuildReq
	require.False(t, ok)
}
