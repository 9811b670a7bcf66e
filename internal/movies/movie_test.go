package movies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieIndexable(t *testing.T) {
	assert.True(t, Movie{ID: "1", Title: "Inception"}.Indexable())
	assert.False(t, Movie{Title: "Inception"}.Indexable())
	assert.False(t, Movie{ID: "1"}.Indexable())
	assert.False(t, Movie{ID: "1", Title: "   "}.Indexable())
}

func TestMovieFieldsRoundTrip(t *testing.T) {
	in := Movie{
		ID:              "42",
		Title:           "Inception",
		PosterURL:       "https://example.com/inception.jpg",
		Rating:          8.8,
		Genres:          []string{"sci-fi", "thriller"},
		Description:     "a dream within a dream",
		DurationMinutes: 148,
		ReleaseUnix:     1279238400,
	}
	out, ok := DecodeFields("42", in.Fields())
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestDecodeFieldsDefaults(t *testing.T) {
	m, ok := DecodeFields("7", map[string]string{
		"title":       "Interstellar",
		"rating":      "not-a-number",
		"releaseUnix": "",
		"genres":      "{broken json",
	})
	require.True(t, ok)
	assert.Equal(t, "7", m.ID)
	assert.Equal(t, "Interstellar", m.Title)
	assert.Zero(t, m.Rating)
	assert.Zero(t, m.ReleaseUnix)
	assert.Zero(t, m.DurationMinutes)
	assert.Nil(t, m.Genres)
}

func TestDecodeFieldsMissingTitle(t *testing.T) {
	_, ok := DecodeFields("7", map[string]string{"id": "7"})
	assert.False(t, ok)

	_, ok = DecodeFields("7", nil)
	assert.False(t, ok)
}
