// Package movies implements the autocomplete engine: movie records are
// indexed into three sorted sets (title-lexical, popularity, release time),
// prefix queries resolve candidates via lexicographic range scans, and a
// composite score over prefix match, popularity, and recency orders the
// results. Query results are cached for a short TTL.
package movies

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Movie is a denormalized catalog record. It is stored as a flat field map
// keyed by movie:<id>; numeric fields go through parse-with-default decoding
// at this boundary.
type Movie struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	PosterURL       string   `json:"posterUrl,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	Description     string   `json:"description,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	ReleaseUnix     int64    `json:"releaseUnix,omitempty"`
}

// Indexable reports whether the movie carries the fields required for
// indexing. Movies failing this check are skipped silently, not rejected.
func (m Movie) Indexable() bool {
	return m.ID != "" && strings.TrimSpace(m.Title) != ""
}

// Fields encodes the movie as a flat field map for hash storage. Genres are
// JSON-encoded into a single field.
func (m Movie) Fields() map[string]string {
	fields := map[string]string{
		"id":              m.ID,
		"title":           m.Title,
		"posterUrl":       m.PosterURL,
		"rating":          strconv.FormatFloat(m.Rating, 'f', -1, 64),
		"description":     m.Description,
		"durationMinutes": strconv.Itoa(m.DurationMinutes),
		"releaseUnix":     strconv.FormatInt(m.ReleaseUnix, 10),
	}
	if len(m.Genres) > 0 {
		if data, err := json.Marshal(m.Genres); err == nil {
			fields["genres"] = string(data)
		}
	} else {
		fields["genres"] = ""
	}
	return fields
}

// DecodeFields rebuilds a Movie from its stored field map. Missing or
// unparseable numeric fields decode to zero. ok is false when the record has
// no title, which marks it stale or incomplete.
func DecodeFields(id string, fields map[string]string) (Movie, bool) {
	title := fields["title"]
	if title == "" {
		return Movie{}, false
	}
	m := Movie{
		ID:          id,
		Title:       title,
		PosterURL:   fields["posterUrl"],
		Description: fields["description"],
	}
	if v := fields["id"]; v != "" {
		m.ID = v
	}
	if v := fields["rating"]; v != "" {
		m.Rating, _ = strconv.ParseFloat(v, 64)
	}
	if v := fields["durationMinutes"]; v != "" {
		m.DurationMinutes, _ = strconv.Atoi(v)
	}
	if v := fields["releaseUnix"]; v != "" {
		m.ReleaseUnix, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := fields["genres"]; v != "" {
		var genres []string
		if err := json.Unmarshal([]byte(v), &genres); err == nil {
			m.Genres = genres
		}
	}
	return m, true
}
