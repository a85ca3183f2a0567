package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/wire"
)

// memoryBroker routes publishes to in-process subscribers.
type memoryBroker struct {
	published map[string][][]byte
	handlers  map[string]Handler
	mu        sync.Mutex
	cond      *sync.Cond
}

func newMemoryBroker() *memoryBroker {
	b := &memoryBroker{
		published: make(map[string][][]byte),
		handlers:  make(map[string]Handler),
	}
	b.cond = sync.NewCond(&b.mu)

	return b
}

func (b *memoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published[topic] = append(b.published[topic], payload)
	b.cond.Broadcast()

	return nil
}

func (b *memoryBroker) Subscribe(_ context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topic == "" {
		return errors.New("empty topic")
	}

	b.handlers[topic] = handler

	return nil
}

func (b *memoryBroker) deliver(topic string, payload []byte) {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()

	h(context.Background(), topic, payload)
}

// waitFor blocks until topic has n payloads.
func (b *memoryBroker) waitFor(topic string, n int) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.published[topic]) < n {
		b.cond.Wait()
	}

	return b.published[topic]
}

func TestPublisher_Send(t *testing.T) {
	t.Parallel()

	broker := newMemoryBroker()
	p := NewPublisher(broker, "safeguardian/alerts", "safeguardian/notifications")
	ctx := context.Background()

	require.NoError(t, p.Send(ctx, &alert.Message{ID: "m1", Urgency: alert.UrgencySOS, Text: "help"}))
	p.Emit(ctx, notify.Notification{Title: "SOS Alert Sent!"})

	alerts := broker.waitFor("safeguardian/alerts/sos", 1)
	require.Contains(t, string(alerts[0]), `"text":"help"`)

	notes := broker.waitFor("safeguardian/notifications", 1)
	require.Contains(t, string(notes[0]), "SOS Alert Sent!")
}

func TestPublisher_DisabledTopics(t *testing.T) {
	t.Parallel()

	broker := newMemoryBroker()
	p := NewPublisher(broker, "", "")

	require.NoError(t, p.Send(context.Background(), &alert.Message{ID: "m1"}))
	p.Emit(context.Background(), notify.Notification{Title: "x"})

	time.Sleep(10 * time.Millisecond)

	broker.mu.Lock()
	defer broker.mu.Unlock()

	require.Empty(t, broker.published)
}

func TestDetectionSignal(t *testing.T) {
	t.Parallel()

	broker := newMemoryBroker()

	signal, err := SubscribeDetections(context.Background(), broker, "safeguardian/detections")
	require.NoError(t, err)

	defer signal.Close()

	broker.deliver("safeguardian/detections", []byte("{not json"))
	broker.deliver("safeguardian/detections", []byte("Scream"))

	payload, err := wire.Marshal(wire.DetectionEventToStruct(detectEvent("Gunshot", "watch")))
	require.NoError(t, err)
	broker.deliver("safeguardian/detections", payload)

	first := <-signal.Events()
	require.Equal(t, "Scream", first.Label)
	require.Equal(t, "safeguardian/detections", first.Source)

	second := <-signal.Events()
	require.Equal(t, "Gunshot", second.Label)
	require.Equal(t, "watch", second.Source)

	_, err = SubscribeDetections(context.Background(), broker, "")
	require.Error(t, err)
}

func detectEvent(label, source string) detect.Event {
	return detect.Event{Label: label, Source: source}
}
