package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggle(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	toggle := NewToggle(rec, true)
	ctx := context.Background()

	toggle.Emit(ctx, Notification{Title: "one"})
	toggle.SetEnabled(false)
	require.False(t, toggle.Enabled())
	toggle.Emit(ctx, Notification{Title: "two"})
	toggle.SetEnabled(true)
	toggle.Emit(ctx, Notification{Title: "three"})

	require.Equal(t, []string{"one", "three"}, rec.Titles())
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := &Recorder{}, &Recorder{}
	Multi{a, nil, LogSink{}, b}.Emit(context.Background(), Notification{Title: "x", Severity: SeverityInfo})

	require.Len(t, a.All(), 1)
	require.Len(t, b.All(), 1)
}
