package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/logger"
	"github.com/oshokin/safeguardian/internal/wire"
)

const (
	detectionBuffer = 16
	// detectionEnqueueTimeout bounds how long a broker callback waits for the watcher.
	detectionEnqueueTimeout = 2 * time.Second
)

// DetectionSignal is a detect.Signal fed by a broker topic.
type DetectionSignal struct {
	ch *detect.Channel
}

// SubscribeDetections subscribes to topic and exposes its payloads as
// detection events.
func SubscribeDetections(ctx context.Context, broker Broker, topic string) (*DetectionSignal, error) {
	s := &DetectionSignal{ch: detect.NewChannel(detectionBuffer)}

	err := broker.Subscribe(ctx, topic, s.handle)
	if err != nil {
		s.ch.Close()

		return nil, fmt.Errorf("subscribe detections: %w", err)
	}

	return s, nil
}

// Events implements detect.Signal.
func (s *DetectionSignal) Events() <-chan detect.Event {
	return s.ch.Events()
}

// Close ends the event stream.
func (s *DetectionSignal) Close() {
	s.ch.Close()
}

func (s *DetectionSignal) handle(ctx context.Context, topic string, payload []byte) {
	e, err := wire.DecodeDetectionEvent(payload)
	if err != nil {
		logger.WarnKV(ctx, "Dropping detection payload", "topic", topic, "error", err)

		return
	}

	if e.Source == "" {
		e.Source = topic
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, detectionEnqueueTimeout)
	defer cancel()

	if err = s.ch.Publish(enqueueCtx, e); err != nil {
		logger.WarnKV(ctx, "Detection event not delivered", "label", e.Label, "error", err)
	}
}
