package mqtt

import (
	"context"
	"time"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/notify"
	"github.com/oshokin/safeguardian/internal/wire"
)

// defaultPublishTimeout bounds one background publish.
const defaultPublishTimeout = 5 * time.Second

// Publisher forwards alert messages and notifications to broker topics. It
// implements dispatch.Transport and notify.Sink.
type Publisher struct {
	broker            Broker
	alertTopic        string
	notificationTopic string
	timeout           time.Duration
}

// NewPublisher creates a publisher. An empty topic disables that stream.
func NewPublisher(broker Broker, alertTopic, notificationTopic string) *Publisher {
	return &Publisher{
		broker:            broker,
		alertTopic:        alertTopic,
		notificationTopic: notificationTopic,
		timeout:           defaultPublishTimeout,
	}
}

// Send publishes m to <alertTopic>/<urgency>. The broker acknowledgement is
// awaited in the background so a slow broker never stalls dispatch.
func (p *Publisher) Send(ctx context.Context, m *alert.Message) error {
	if p.alertTopic == "" {
		return nil
	}

	payload, err := wire.Marshal(wire.MessageToStruct(m))
	if err != nil {
		return err
	}

	p.publish(ctx, p.alertTopic+"/"+string(m.Urgency), payload)

	return nil
}

// Emit publishes n to the notification topic.
func (p *Publisher) Emit(ctx context.Context, n notify.Notification) {
	if p.notificationTopic == "" {
		return
	}

	payload, err := wire.Marshal(wire.NotificationToStruct(n))
	if err != nil {
		logger.WarnKV(ctx, "Failed to encode notification", "error", err)

		return
	}

	p.publish(ctx, p.notificationTopic, payload)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) {
	// The caller's context may end with its request; the publish outlives it.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)

	go func() {
		defer cancel()

		if err := p.broker.Publish(pubCtx, topic, payload); err != nil {
			logger.WarnKV(pubCtx, "MQTT publish failed", "topic", topic, "error", err)
		}
	}()
}
