package detect

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatcher_HandlesDangerousEvents(t *testing.T) {
	t.Parallel()

	a, b := NewChannel(4), NewChannel(4)

	var (
		labels []string
		mu     sync.Mutex
	)

	w := NewWatcher(func(_ context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()

		labels = append(labels, e.Label)
	}, []Signal{a, b})

	ctx := context.Background()
	require.NoError(t, a.Publish(ctx, Event{Label: "Scream", Source: "mic"}))
	require.NoError(t, a.Publish(ctx, Event{Label: "Loud noise", Source: "mic"}))
	require.NoError(t, b.Publish(ctx, Event{Label: " gunshot ", Source: "mqtt"}))
	a.Close()
	b.Close()

	require.NoError(t, w.Run(ctx))

	mu.Lock()
	defer mu.Unlock()

	require.ElementsMatch(t, []string{"Scream", " gunshot "}, labels)
}

func TestWatcher_StopsOnContext(t *testing.T) {
	t.Parallel()

	ch := NewChannel(0)
	defer ch.Close()

	w := NewWatcher(func(context.Context, Event) {}, []Signal{ch})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, w.Run(ctx), context.Canceled)
}

func TestWatcher_LabelSet(t *testing.T) {
	t.Parallel()

	w := NewWatcher(nil, nil, WithDangerousLabels("Breaking glass"))
	require.True(t, w.Dangerous("breaking GLASS"))
	require.False(t, w.Dangerous("Scream"))

	all := NewWatcher(nil, nil, WithDangerousLabels())
	require.True(t, all.Dangerous("anything"))
}

func TestChannel_PublishAfterClose(t *testing.T) {
	t.Parallel()

	ch := NewChannel(1)
	ch.Close()
	ch.Close()

	require.ErrorIs(t, ch.Publish(context.Background(), Event{Label: "Scream"}), ErrChannelClosed)
}
