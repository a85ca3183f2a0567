package wire

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func number(s *structpb.Struct, key string) float64 {
	return s.GetFields()[key].GetNumberValue()
}

// numberField returns the value when key holds a number.
func numberField(s *structpb.Struct, key string) (float64, bool) {
	v, ok := s.GetFields()[key].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}

	return v.NumberValue, true
}

// optionalString returns a pointer to the value when key is present.
func optionalString(s *structpb.Struct, key string) *string {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}

	value := v.GetStringValue()

	return &value
}

// optionalBool returns a pointer to the value when key is present.
func optionalBool(s *structpb.Struct, key string) *bool {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}

	value := v.GetBoolValue()

	return &value
}

func timestamp(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}

	return structpb.NewStringValue(t.UTC().Format(time.RFC3339Nano))
}

func parseTimestamp(s *structpb.Struct, key string) time.Time {
	raw := str(s, key)
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return t
}
