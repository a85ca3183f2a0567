package contact

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDraftValidate covers required fields and the phone pattern.
func TestDraftValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		draft Draft
		ok    bool
	}{
		{"valid international", Draft{Name: "A", Phone: "+1 555-123-4567"}, true},
		{"valid parentheses", Draft{Name: "A", Phone: "(555) 123-4567"}, true},
		{"missing name", Draft{Phone: "555-123-4567"}, false},
		{"missing phone", Draft{Name: "A"}, false},
		{"letters", Draft{Name: "A", Phone: "bad"}, false},
		{"too short", Draft{Name: "A", Phone: "999"}, false},
		{"too long", Draft{Name: "A", Phone: "+1234567890123456"}, false},
		{"plus in the middle", Draft{Name: "A", Phone: "555+1234567"}, false},
	}

	for _, tc := range cases {
		err := tc.draft.Validate()
		if tc.ok {
			require.NoError(t, err, tc.name)

			continue
		}

		require.ErrorIs(t, err, ErrValidation, tc.name)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr), tc.name)
	}
}

// TestNew derives the family flag from the relationship label.
func TestNew(t *testing.T) {
	t.Parallel()

	c := New("id-1", Draft{Name: "Alex", Phone: "555-123-4567", Relationship: FamilyRelationship})
	require.True(t, c.IsFamily)
	require.False(t, c.IsPrimary)

	c = New("id-2", Draft{Name: "Emily", Phone: "555-111-2222", Relationship: "Friend"})
	require.False(t, c.IsFamily)
}

// TestPatchApply checks the sticky family flag and explicit toggling.
func TestPatchApply(t *testing.T) {
	t.Parallel()

	family := FamilyRelationship
	friend := "Friend"
	no := false

	c := New("id", Draft{Name: "Alex", Phone: "555-123-4567", Relationship: friend})

	Patch{Relationship: &family}.Apply(c)
	require.True(t, c.IsFamily)

	// Moving away from "Family" keeps the flag.
	Patch{Relationship: &friend}.Apply(c)
	require.True(t, c.IsFamily)
	require.Equal(t, friend, c.Relationship)

	// Explicit toggle clears it.
	Patch{IsFamily: &no}.Apply(c)
	require.False(t, c.IsFamily)

	// "Family" wins over an explicit false in the same patch.
	Patch{Relationship: &family, IsFamily: &no}.Apply(c)
	require.True(t, c.IsFamily)
}

// TestPatchValidate only validates present fields.
func TestPatchValidate(t *testing.T) {
	t.Parallel()

	empty := ""
	bad := "12ab"

	require.NoError(t, Patch{}.Validate())
	require.ErrorIs(t, Patch{Name: &empty}.Validate(), ErrValidation)
	require.ErrorIs(t, Patch{Phone: &bad}.Validate(), ErrValidation)
}

// TestErrorsUnwrap ensures typed errors match their sentinels.
func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, &NotFoundError{ID: "x"}, ErrNotFound)
	require.ErrorIs(t, &PrimaryContactProtectedError{ID: "x"}, ErrPrimaryProtected)
	require.NotErrorIs(t, &NotFoundError{ID: "x"}, ErrPrimaryProtected)
}

// TestClone returns an independent copy and handles nil.
func TestClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Contact)(nil).Clone())

	a := &Contact{ID: "1", Name: "A"}
	b := a.Clone()
	require.Equal(t, a, b)
	require.NotSame(t, a, b)
}
