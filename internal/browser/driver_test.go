package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLooksLikeRef(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"e1", true},
		{"e12", true},
		{"e", false},
		{"button.submit", false},
		{"#email", false},
		{"e12x", false},
		{"", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, looksLikeRef(tc.input), "input %q", tc.input)
	}
}

func TestRefSelector(t *testing.T) {
	assert.Equal(t, `[data-prism-ref="e7"]`, refSelector("e7"))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Headless)
	assert.Equal(t, 30*time.Second, opts.ActionTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.NetworkQuiet)
}

func TestNetWatcherIdleTracking(t *testing.T) {
	w := newNetWatcher()
	assert.True(t, w.idleFor(0), "a fresh watcher with no traffic is idle")

	w.inflight["req-1"] = struct{}{}
	assert.False(t, w.idleFor(0))

	w.finish("req-1")
	assert.True(t, w.idleFor(0))
	assert.False(t, w.idleFor(time.Minute), "quiet period has not elapsed yet")
}
