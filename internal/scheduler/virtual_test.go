package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestVirtual_OrderAndPeriodic checks due ordering, same-instant ordering and repetition.
func TestVirtual_OrderAndPeriodic(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	v := NewVirtual(start)

	var fired []string

	v.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	v.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	v.AfterFunc(2*time.Second, func() { fired = append(fired, "c") })
	v.Every(time.Second, func() { fired = append(fired, "tick") })

	v.Advance(2 * time.Second)

	require.Equal(t, []string{"a", "tick", "b", "c", "tick"}, fired)
	require.Equal(t, start.Add(2*time.Second), v.Now())
	require.Equal(t, 1, v.Pending())
}

// TestVirtual_CancelFromCallback stops a repeating callback from inside itself.
func TestVirtual_CancelFromCallback(t *testing.T) {
	t.Parallel()

	v := NewVirtual(time.Unix(0, 0))

	var (
		count int
		h     Handle
	)

	h = v.Every(time.Second, func() {
		count++
		if count == 3 {
			v.Cancel(h)
		}
	})

	v.Advance(10 * time.Second)

	require.Equal(t, 3, count)
	require.Zero(t, v.Pending())
	require.False(t, v.Cancel(h))
}

// TestVirtual_ScheduleDuringAdvance runs callbacks scheduled inside the advanced window.
func TestVirtual_ScheduleDuringAdvance(t *testing.T) {
	t.Parallel()

	v := NewVirtual(time.Unix(0, 0))

	var at []time.Time

	v.AfterFunc(time.Second, func() {
		v.AfterFunc(time.Second, func() { at = append(at, v.Now()) })
		v.AfterFunc(time.Hour, func() { at = append(at, v.Now()) })
	})

	v.Advance(5 * time.Second)

	require.Equal(t, []time.Time{time.Unix(2, 0)}, at)
	require.Equal(t, 1, v.Pending())
}
