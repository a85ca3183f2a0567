package wire

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/domain/alert"
	"github.com/oshokin/safeguardian/internal/domain/geo"
)

// PointToStruct converts coordinates into a {lat, lng} record.
func PointToStruct(p geo.Point) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"lat": structpb.NewNumberValue(p.Lat),
			"lng": structpb.NewNumberValue(p.Lng),
		},
	}
}

// PointFromStruct reads a {lat, lng} record. It reports false unless both
// keys are present and numeric.
func PointFromStruct(s *structpb.Struct) (geo.Point, bool) {
	lat, latOK := numberField(s, "lat")
	lng, lngOK := numberField(s, "lng")

	if !latOK || !lngOK {
		return geo.Point{}, false
	}

	return geo.Point{Lat: lat, Lng: lng}, true
}

// MessageToStruct converts an alert message into its wire record.
func MessageToStruct(m *alert.Message) *structpb.Struct {
	location := structpb.NewNullValue()
	if m.Location != nil {
		location = structpb.NewStructValue(PointToStruct(*m.Location))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":           structpb.NewStringValue(m.ID),
			"batchId":      structpb.NewStringValue(m.BatchID),
			"contactId":    structpb.NewStringValue(m.ContactID),
			"contactName":  structpb.NewStringValue(m.ContactName),
			"phone":        structpb.NewStringValue(m.Phone),
			"urgency":      structpb.NewStringValue(string(m.Urgency)),
			"priority":     structpb.NewStringValue(string(m.Priority)),
			"text":         structpb.NewStringValue(m.Text),
			"location":     location,
			"locationText": structpb.NewStringValue(m.LocationText),
			"createdAt":    timestamp(m.CreatedAt),
			"updatedAt":    timestamp(m.UpdatedAt),
			"status":       structpb.NewStringValue(m.Status.String()),
		},
	}
}

// MessageFromStruct converts a wire record back into an alert message.
func MessageFromStruct(s *structpb.Struct) *alert.Message {
	status, _ := alert.ParseStatus(str(s, "status"))

	m := &alert.Message{
		ID:           str(s, "id"),
		BatchID:      str(s, "batchId"),
		ContactID:    str(s, "contactId"),
		ContactName:  str(s, "contactName"),
		Phone:        str(s, "phone"),
		Urgency:      alert.Urgency(str(s, "urgency")),
		Priority:     alert.Priority(str(s, "priority")),
		Text:         str(s, "text"),
		LocationText: str(s, "locationText"),
		CreatedAt:    parseTimestamp(s, "createdAt"),
		UpdatedAt:    parseTimestamp(s, "updatedAt"),
		Status:       status,
	}

	if loc := s.GetFields()["location"].GetStructValue(); loc != nil {
		if p, ok := PointFromStruct(loc); ok {
			m.Location = &p
		}
	}

	return m
}

// MessagesToList converts messages preserving order.
func MessagesToList(messages []*alert.Message) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(messages))
	for _, m := range messages {
		values = append(values, structpb.NewStructValue(MessageToStruct(m)))
	}

	return &structpb.ListValue{Values: values}
}

// MessagesFromList converts a wire list back into messages.
func MessagesFromList(list *structpb.ListValue) []*alert.Message {
	messages := make([]*alert.Message, 0, len(list.GetValues()))

	for _, v := range list.GetValues() {
		if s := v.GetStructValue(); s != nil {
			messages = append(messages, MessageFromStruct(s))
		}
	}

	return messages
}

// BatchToStruct converts a dispatch batch into its wire record.
func BatchToStruct(b *alert.Batch) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":          structpb.NewStringValue(b.ID),
			"urgency":     structpb.NewStringValue(string(b.Urgency)),
			"createdAt":   timestamp(b.CreatedAt),
			"familyCount": structpb.NewNumberValue(float64(b.FamilyCount)),
			"messages":    structpb.NewListValue(MessagesToList(b.Messages)),
		},
	}
}

// BatchFromStruct converts a wire record back into a dispatch batch.
func BatchFromStruct(s *structpb.Struct) *alert.Batch {
	return &alert.Batch{
		ID:          str(s, "id"),
		Urgency:     alert.Urgency(str(s, "urgency")),
		CreatedAt:   parseTimestamp(s, "createdAt"),
		FamilyCount: int(number(s, "familyCount")),
		Messages:    MessagesFromList(s.GetFields()["messages"].GetListValue()),
	}
}
