package directory

import "github.com/oshokin/safeguardian/internal/domain/contact"

// DefaultContacts is the reference contact set seeded into a directory that
// has never been saved. The first entry becomes primary.
func DefaultContacts() []contact.Draft {
	return []contact.Draft{
		{Name: "Emergency Services", Phone: "999", Relationship: "Emergency"},
		{Name: "Alex Smith", Phone: "555-123-4567", Email: "alex@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Jordan Lee", Phone: "555-987-6543", Email: "jordan@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Taylor Wong", Phone: "555-456-7890", Email: "taylor@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Emma Johnson", Phone: "555-789-1234", Email: "emma@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Michael Chen", Phone: "555-321-9876", Email: "michael@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Sophia Rodriguez", Phone: "555-654-7890", Email: "sophia@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Sarah Williams", Phone: "555-222-3333", Email: "sarah@example.com", Relationship: contact.FamilyRelationship},
		{Name: "David Johnson", Phone: "555-444-5555", Email: "david@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Lisa Garcia", Phone: "555-666-7777", Email: "lisa@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Robert Kim", Phone: "555-888-9999", Email: "robert@example.com", Relationship: contact.FamilyRelationship},
		{Name: "Emily Wilson", Phone: "555-111-2222", Email: "emily@example.com", Relationship: "Friend"},
		{Name: "Personal Doctor", Phone: "555-333-4444", Email: "doctor@example.com", Relationship: "Medical"},
	}
}
