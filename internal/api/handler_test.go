package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventura/movie-autocomplete/internal/movies"
	"github.com/eventura/movie-autocomplete/internal/store"
	"github.com/eventura/movie-autocomplete/pkg/config"
	"github.com/eventura/movie-autocomplete/pkg/health"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := movies.NewService(store.NewMemory(), config.SearchConfig{
		DefaultLimit: 5,
		MaxResults:   25,
		CandidateCap: 100,
	}, 10*time.Second, nil, nil)
	handler := NewRouter(New(svc, nil, nil), health.NewChecker(), nil, config.ServerConfig{})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestIndexAndAutocomplete(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/movies", `{"id":"1","title":"Inception","rating":8.8}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var indexBody struct {
		Indexed int `json:"indexed"`
	}
	decodeBody(t, resp, &indexBody)
	assert.Equal(t, 1, indexBody.Indexed)

	resp, err := http.Get(srv.URL + "/api/v1/autocomplete?q=ince")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Suggestions []movies.Suggestion `json:"suggestions"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "1", body.Suggestions[0].ID)
	assert.Greater(t, body.Suggestions[0].Score, 0.0)
}

func TestAutocompleteNoMatches(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/autocomplete?q=zzz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Suggestions []movies.Suggestion `json:"suggestions"`
	}
	decodeBody(t, resp, &body)
	assert.Empty(t, body.Suggestions)
}

func TestAutocompleteRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/autocomplete?q=a&limit=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/autocomplete?q=a&limit=0")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBatchIndexSkipsInvalid(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/movies/batch",
		`{"movies":[{"id":"1","title":"Inception"},{"title":"no id"},{"id":"2","title":"Interstellar"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Indexed int `json:"indexed"`
		Skipped int `json:"skipped"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 2, body.Indexed)
	assert.Equal(t, 1, body.Skipped)
}

func TestBatchIndexRejectsEmpty(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/movies/batch", `{"movies":[]}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/movies/batch", `not json`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestViewIncrementsPopularity(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/movies", `{"id":"1","title":"Inception"}`)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/v1/views/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Trending reflects the increment.
	httpResp, err := http.Get(srv.URL + "/api/v1/autocomplete")
	require.NoError(t, err)
	var body struct {
		Suggestions []movies.Suggestion `json:"suggestions"`
	}
	decodeBody(t, httpResp, &body)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, 1.0, body.Suggestions[0].Score)
}

func TestGetMovie(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/movies", `{"id":"1","title":"Inception"}`)
	resp.Body.Close()

	httpResp, err := http.Get(srv.URL + "/api/v1/movies/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
	var movie movies.Movie
	decodeBody(t, httpResp, &movie)
	assert.Equal(t, "Inception", movie.Title)

	httpResp, err = http.Get(srv.URL + "/api/v1/movies/404")
	require.NoError(t, err)
	httpResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)
}

func TestReindexWithoutArchive(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/reindex", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHealthLive(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/autocomplete?q=a", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "test-id-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "test-id-123", resp.Header.Get("X-Request-ID"))
}
