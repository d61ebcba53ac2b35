package rating

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		rating float64
		title  string
		class  string
	}{
		{0, "Unrated", ""},
		{999, "Newbie", "rate-newbie"},
		{1000, "Amateur", "rate-amateur"},
		{1299.5, "Amateur", "rate-amateur"},
		{1300, "Expert", "rate-expert"},
		{1600, "Candidate Master", "rate-candidate-master"},
		{1900, "Master", "rate-master"},
		{2100, "Grandmaster", "rate-grandmaster"},
		{2400, "Target", "rate-target"},
		{3150, "Admin", "rate-admin"},
	}
	for _, tc := range cases {
		got := TierFor(tc.rating)
		require.Equal(t, tc.title, got.Title, tc.rating)
		require.Equal(t, tc.class, got.Class, tc.rating)
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "", Format(0))
	require.Equal(t, "1500", Format(1500))
	require.Equal(t, "1501", Format(1500.5))
}
