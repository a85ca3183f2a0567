//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/sos"
	"github.com/oshokin/safeguardian/internal/wire"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestDispatchEvent routes watch events by type and skips nil handlers.
func TestDispatchEvent(t *testing.T) {
	t.Parallel()

	var (
		gotSOS          sos.Snapshot
		gotNotification notify.Notification
	)

	handlers := WatchHandlers{
		SOS:          func(s sos.Snapshot) { gotSOS = s },
		Notification: func(n notify.Notification) { gotNotification = n },
	}

	wrap := func(kind string, payload *structpb.Struct) *structpb.Struct {
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"type": structpb.NewStringValue(kind),
			kind:   structpb.NewStructValue(payload),
		}}
	}

	dispatchEvent(wrap("sos", wire.SnapshotToStruct(sos.Snapshot{State: sos.StateArming, Countdown: 4})), handlers)
	require.Equal(t, sos.StateArming, gotSOS.State)
	require.Equal(t, 4, gotSOS.Countdown)

	dispatchEvent(wrap("notification", wire.NotificationToStruct(notify.Notification{Title: "SOS Cancelled"})), handlers)
	require.Equal(t, "SOS Cancelled", gotNotification.Title)

	require.NotPanics(t, func() {
		dispatchEvent(wrap("message", wire.MessageToStruct(&alert.Message{ID: "m1"})), handlers)
		dispatchEvent(wrap("unknown", &structpb.Struct{}), handlers)
	})
}
