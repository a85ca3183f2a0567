package scheduler

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// counter is a goroutine-safe call counter.
type counter struct {
	n  int
	mu sync.Mutex
}

func (c *counter) inc() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.n++
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.n
}

// TestRuntime_FiresAndCancels drives wall-clock timers inside a synctest bubble.
func TestRuntime_FiresAndCancels(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := NewRuntime()
		defer r.Stop()

		var once, repeating, cancelled counter

		r.AfterFunc(2*time.Second, once.inc)
		h := r.Every(time.Second, repeating.inc)
		dropped := r.AfterFunc(time.Second, cancelled.inc)

		require.True(t, r.Cancel(dropped))
		require.False(t, r.Cancel(dropped))

		time.Sleep(3500 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, once.get())
		require.Equal(t, 3, repeating.get())
		require.Zero(t, cancelled.get())
		require.Equal(t, 1, r.Pending())

		require.True(t, r.Cancel(h))

		time.Sleep(5 * time.Second)
		synctest.Wait()

		require.Equal(t, 3, repeating.get())
		require.Zero(t, r.Pending())
	})
}

// TestRuntime_StopDropsEverything ensures nothing fires after Stop.
func TestRuntime_StopDropsEverything(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := NewRuntime()

		var c counter

		r.Every(time.Second, c.inc)
		r.Stop()
		r.AfterFunc(time.Millisecond, c.inc)

		time.Sleep(10 * time.Second)
		synctest.Wait()

		require.Zero(t, c.get())
		require.Zero(t, r.Pending())
	})
}
