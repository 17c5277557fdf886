package provider

import (
	"testing"

	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/fake"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/nominatim"
	"github.com/BearBump/FreshTrack/internal/integrations/geocoder/opencage"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsClient(t *testing.T) {
	c, name := New("nominatim", "", "freshtrack-test", nil)
	_, ok := c.(*nominatim.Client)
	require.True(t, ok)
	require.Equal(t, Nominatim, name)

	c, name = New("opencage", "", "", []string{"k1", "k2"})
	_, ok = c.(*opencage.Client)
	require.True(t, ok)
	require.Equal(t, OpenCage, name)

	for _, unknown := range []string{"", "google"} {
		c, name = New(unknown, "", "", nil)
		_, ok = c.(*fake.FakeClient)
		require.True(t, ok, unknown)
		require.Equal(t, Fake, name)
	}
}
