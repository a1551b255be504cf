package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIDRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 85, 123, 99999} {
		got := ExtractID(FormatLink("albums", n))
		require.NotNil(t, got, "link for %d", n)
		assert.Equal(t, n, *got)
	}
}

func TestExtractID(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  *int64
	}{
		{"empty string", "", nil},
		{"album uri", "/albums/85", int64Ptr(85)},
		{"track uri", "/tracks/123", int64Ptr(123)},
		{"trailing junk", "/albums/12X", nil},
		{"bare digits", "123", int64Ptr(123)},
		{"word", "cat", nil},
		{"number", float64(432), int64Ptr(432)},
		{"negative number", float64(-3), int64Ptr(-3)},
		{"negative string", "-3", nil},
		{"nil", nil, nil},
		{"uri with no id", "/albums/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractID(tt.value)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParseInformationLevel(t *testing.T) {
	assert.Equal(t, InfoNone, ParseInformationLevel("none", InfoLinks))
	assert.Equal(t, InfoLinks, ParseInformationLevel("links", InfoNone))
	assert.Equal(t, InfoAll, ParseInformationLevel("ALL", InfoLinks))
	assert.Equal(t, InfoDebug, ParseInformationLevel("debug", InfoLinks))
	assert.Equal(t, InfoLinks, ParseInformationLevel("", InfoLinks))
	assert.Equal(t, InfoAll, ParseInformationLevel("bogus", InfoAll))
}

func int64Ptr(v int64) *int64 { return &v }
