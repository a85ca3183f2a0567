package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/safeguardian/internal/domain/contact"
)

// Contact field names.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldPhone        = "phone"
	FieldEmail        = "email"
	FieldRelationship = "relationship"
	FieldIsPrimary    = "isPrimary"
	FieldIsFamily     = "isFamily"
)

// ContactToStruct converts a contact into its wire record.
func ContactToStruct(c *contact.Contact) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldID:           structpb.NewStringValue(c.ID),
			FieldName:         structpb.NewStringValue(c.Name),
			FieldPhone:        structpb.NewStringValue(c.Phone),
			FieldEmail:        structpb.NewStringValue(c.Email),
			FieldRelationship: structpb.NewStringValue(c.Relationship),
			FieldIsPrimary:    structpb.NewBoolValue(c.IsPrimary),
			FieldIsFamily:     structpb.NewBoolValue(c.IsFamily),
		},
	}
}

// ContactFromStruct converts a wire record into a contact.
func ContactFromStruct(s *structpb.Struct) *contact.Contact {
	return &contact.Contact{
		ID:           str(s, FieldID),
		Name:         str(s, FieldName),
		Phone:        str(s, FieldPhone),
		Email:        str(s, FieldEmail),
		Relationship: str(s, FieldRelationship),
		IsPrimary:    boolean(s, FieldIsPrimary),
		IsFamily:     boolean(s, FieldIsFamily),
	}
}

// ContactsToList converts an ordered contact list.
func ContactsToList(contacts []*contact.Contact) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(contacts))
	for _, c := range contacts {
		values = append(values, structpb.NewStructValue(ContactToStruct(c)))
	}

	return &structpb.ListValue{Values: values}
}

// ContactsFromList converts a wire list back, preserving order.
// Entries that are not objects are skipped.
func ContactsFromList(list *structpb.ListValue) []*contact.Contact {
	contacts := make([]*contact.Contact, 0, len(list.GetValues()))

	for _, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			continue
		}

		contacts = append(contacts, ContactFromStruct(s))
	}

	return contacts
}

// DraftToStruct converts creation input into a wire record.
func DraftToStruct(d contact.Draft) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldName:         structpb.NewStringValue(d.Name),
			FieldPhone:        structpb.NewStringValue(d.Phone),
			FieldEmail:        structpb.NewStringValue(d.Email),
			FieldRelationship: structpb.NewStringValue(d.Relationship),
		},
	}
}

// DraftFromStruct reads creation input. Identity and flags are ignored.
func DraftFromStruct(s *structpb.Struct) contact.Draft {
	return contact.Draft{
		Name:         str(s, FieldName),
		Phone:        str(s, FieldPhone),
		Email:        str(s, FieldEmail),
		Relationship: str(s, FieldRelationship),
	}
}

// PatchToStruct converts a partial update; only set fields are emitted.
// The target id travels in the same record.
func PatchToStruct(id string, p contact.Patch) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldID: structpb.NewStringValue(id),
	}

	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = structpb.NewStringValue(*v)
		}
	}

	setString(FieldName, p.Name)
	setString(FieldPhone, p.Phone)
	setString(FieldEmail, p.Email)
	setString(FieldRelationship, p.Relationship)

	if p.IsFamily != nil {
		fields[FieldIsFamily] = structpb.NewBoolValue(*p.IsFamily)
	}

	return &structpb.Struct{Fields: fields}
}

// PatchFromStruct reads the target id and a partial update; absent keys stay nil.
func PatchFromStruct(s *structpb.Struct) (string, contact.Patch) {
	return str(s, FieldID), contact.Patch{
		Name:         optionalString(s, FieldName),
		Phone:        optionalString(s, FieldPhone),
		Email:        optionalString(s, FieldEmail),
		Relationship: optionalString(s, FieldRelationship),
		IsFamily:     optionalBool(s, FieldIsFamily),
	}
}

// MarshalContacts encodes the ordered contact list as JSON.
func MarshalContacts(contacts []*contact.Contact) ([]byte, error) {
	options := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := options.Marshal(ContactsToList(contacts))
	if err != nil {
		return nil, fmt.Errorf("encode contacts: %w", err)
	}

	return data, nil
}

// UnmarshalContacts decodes a list produced by MarshalContacts.
func UnmarshalContacts(data []byte) ([]*contact.Contact, error) {
	var list structpb.ListValue
	if err := protojson.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}

	return ContactsFromList(&list), nil
}
