package wire

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/detect"
	"github.com/oshokin/safeguardian/internal/notify"
)

// ErrMalformed marks a payload that cannot be decoded.
var ErrMalformed = errors.New("malformed payload")

// NotificationToStruct converts a notification into its wire record.
func NotificationToStruct(n notify.Notification) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"title":    structpb.NewStringValue(n.Title),
			"body":     structpb.NewStringValue(n.Body),
			"severity": structpb.NewStringValue(string(n.Severity)),
		},
	}
}

// NotificationFromStruct converts a wire record back into a notification.
func NotificationFromStruct(s *structpb.Struct) notify.Notification {
	return notify.Notification{
		Title:    str(s, "title"),
		Body:     str(s, "body"),
		Severity: notify.Severity(str(s, "severity")),
	}
}

// DetectionEventToStruct converts a detection event into its wire record.
func DetectionEventToStruct(e detect.Event) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"label":  structpb.NewStringValue(e.Label),
			"source": structpb.NewStringValue(e.Source),
		},
	}
}

// DecodeDetectionEvent reads a detection payload. A JSON object is read as
// {label, source}; anything else is taken as the bare label.
func DecodeDetectionEvent(payload []byte) (detect.Event, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return detect.Event{}, fmt.Errorf("%w: empty detection payload", ErrMalformed)
	}

	if trimmed[0] != '{' {
		return detect.Event{Label: string(trimmed)}, nil
	}

	var s structpb.Struct
	if err := protojson.Unmarshal(trimmed, &s); err != nil {
		return detect.Event{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	e := detect.Event{
		Label:  str(&s, "label"),
		Source: str(&s, "source"),
	}

	if e.Label == "" {
		return detect.Event{}, fmt.Errorf("%w: detection event without label", ErrMalformed)
	}

	return e, nil
}

// Marshal encodes a record as compact JSON.
func Marshal(s *structpb.Struct) ([]byte, error) {
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	return data, nil
}

// DetectionEventFromStruct reads a {label, source} record. The label is required.
func DetectionEventFromStruct(s *structpb.Struct) (detect.Event, error) {
	e := detect.Event{
		Label:  str(s, "label"),
		Source: str(s, "source"),
	}

	if e.Label == "" {
		return detect.Event{}, fmt.Errorf("%w: detection event without label", ErrMalformed)
	}

	return e, nil
}
