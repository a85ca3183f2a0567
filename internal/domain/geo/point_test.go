package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDescribe covers both the map link and the unavailable sentinel.
func TestDescribe(t *testing.T) {
	t.Parallel()

	require.Equal(t, Unavailable, Describe(nil))
	require.Equal(t, "https://maps.google.com/?q=37.7749,-122.4194", Describe(&Point{Lat: 37.7749, Lng: -122.4194}))
	require.Equal(t, "https://maps.google.com/?q=0,0", Point{}.MapLink())
}

// TestValid rejects out-of-range coordinates.
func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, Point{Lat: 51.5, Lng: -0.12}.Valid())
	require.False(t, Point{Lat: 91, Lng: 0}.Valid())
	require.False(t, Point{Lat: 0, Lng: -181}.Valid())
}
