package contact

import "regexp"

// FamilyRelationship is the relationship label that marks a contact as family.
const FamilyRelationship = "Family"

// phonePattern accepts an optional leading plus followed by 7-15 digits,
// spaces, dashes or parentheses.
var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,15}$`)

// Contact is a single entry of the emergency contact directory.
type Contact struct {
	// ID is assigned on creation and never changes.
	ID string
	// Name is the display name.
	Name string
	// Phone is the number alerts are addressed to.
	Phone string
	// Email is optional.
	Email string
	// Relationship is a free text label; "Family" sets IsFamily.
	Relationship string
	// IsPrimary marks the single contact that gets the individual SOS message.
	IsPrimary bool
	// IsFamily marks contacts that receive broadcast-tier alerts.
	IsFamily bool
}

// Clone returns a copy of the contact.
func (c *Contact) Clone() *Contact {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// Draft is the caller-supplied part of a new contact.
type Draft struct {
	Name         string
	Phone        string
	Email        string
	Relationship string
}

// Validate checks required fields and the phone format.
func (d Draft) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}

	return validatePhone(d.Phone)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string
	Phone        *string
	Email        *string
	Relationship *string
	// IsFamily explicitly toggles the family flag.
	IsFamily *bool
}

// Validate checks the fields present in the patch.
func (p Patch) Validate() error {
	if p.Name != nil {
		if err := validateName(*p.Name); err != nil {
			return err
		}
	}

	if p.Phone != nil {
		return validatePhone(*p.Phone)
	}

	return nil
}

// Apply merges the patch into c. A "Family" relationship always wins over
// an explicit IsFamily=false in the same patch.
func (p Patch) Apply(c *Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}

	if p.Phone != nil {
		c.Phone = *p.Phone
	}

	if p.Email != nil {
		c.Email = *p.Email
	}

	if p.IsFamily != nil {
		c.IsFamily = *p.IsFamily
	}

	if p.Relationship != nil {
		c.Relationship = *p.Relationship
		if c.Relationship == FamilyRelationship {
			c.IsFamily = true
		}
	}
}

// New builds a contact from a draft. Primacy is decided by the directory.
func New(id string, d Draft) *Contact {
	return &Contact{
		ID:           id,
		Name:         d.Name,
		Phone:        d.Phone,
		Email:        d.Email,
		Relationship: d.Relationship,
		IsFamily:     d.Relationship == FamilyRelationship,
	}
}

func validateName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	return nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return &ValidationError{Field: "phone", Reason: "must not be empty"}
	}

	if !phonePattern.MatchString(phone) {
		return &ValidationError{Field: "phone", Reason: "invalid phone number format"}
	}

	return nil
}
