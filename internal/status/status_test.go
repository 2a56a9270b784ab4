package status

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/placescraper/internal/places"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want places.Status
	}{
		{"Tutup Sementara", places.StatusTemporarilyClosed},
		{"Open now · Closes 9PM", places.StatusActive},
		{"Permanently closed", places.StatusPermanentlyClosed},
		{"Closed permanently", places.StatusPermanentlyClosed},
		{"tutup permanen", places.StatusPermanentlyClosed},
		{"Temporarily closed", places.StatusTemporarilyClosed},
		{"Closed", places.StatusClosed},
		{"Ditutup", places.StatusClosed},
		{"Open", places.StatusActive},
		{"Buka 24 jam", places.StatusActive},
		{"Closed · Opens 8 AM", places.StatusActive},
		{"", places.StatusActive},
		{"Kantor pemerintahan", places.StatusActive},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.text))
		})
	}
}

func TestPermanentBeatsTemporary(t *testing.T) {
	t.Parallel()

	require.Equal(t, places.StatusPermanentlyClosed, Classify("temporarily closed, now permanently closed"))
}

func TestMatchReportsDefault(t *testing.T) {
	t.Parallel()

	s, ok := Match("Toko Roti Enak")
	require.False(t, ok)
	require.Equal(t, places.StatusActive, s)

	s, ok = Match("Closed")
	require.True(t, ok)
	require.Equal(t, places.StatusClosed, s)
}

func TestMentionsHours(t *testing.T) {
	t.Parallel()

	require.True(t, MentionsHours("Open now · Closes 10PM"))
	require.True(t, MentionsHours("Buka 08.00 WIB"))
	require.True(t, MentionsHours("Closes 9 pm"))
	require.False(t, MentionsHours("Kampung Baru"))
	require.False(t, MentionsHours("Jl. Raya Darmo No. 12"))
}
