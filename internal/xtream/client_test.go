package xtream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Credentials{BaseURL: srv.URL, Username: "u", Password: "p"}, ClientConfig{
		RequestsPerSecond: 1000, // no pacing in tests
	})
	require.NoError(t, err)
	return c
}

func TestAuthenticate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/player_api.php", r.URL.Path)
		assert.Equal(t, "u", r.URL.Query().Get("username"))
		assert.Equal(t, "p", r.URL.Query().Get("password"))
		assert.Empty(t, r.URL.Query().Get("action"))
		w.Write([]byte(`{
			"user_info": {"username":"u2","password":"p2","auth":1,"status":"Active","exp_date":"1767225600",
				"allowed_output_formats":["ts","m3u8"]},
			"server_info": {"url":"stream.example.com","port":8080,"https_port":"8443","server_protocol":"http"}
		}`))
	})

	auth, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.True(t, auth.Authenticated)
	assert.Equal(t, "u2", auth.Username)
	assert.Equal(t, "p2", auth.Password)
	assert.Equal(t, "Active", auth.Status)
	assert.Equal(t, "8080", auth.Port)
	assert.Equal(t, []string{"ts", "m3u8"}, auth.AllowedOutputFormats)
	assert.Equal(t, "http://stream.example.com:8080", ResolvePlaybackBase(auth, c.Credentials().BaseURL))
}

func TestAuthenticate_authFlagFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_info": {"auth": 0}}`))
	})
	_, err := c.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGet_statusTaxonomy(t *testing.T) {
	t.Run("401 unauthorized", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.Authenticate(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("500 server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.Categories(context.Background(), KindLive)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 500, se.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("  \n"))
		})
		_, err := c.Categories(context.Background(), KindLive)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>cloudflare</html>"))
		})
		_, err := c.Categories(context.Background(), KindLive)
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "get_live_categories", de.Action)
	})
}

func TestGet_timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Authenticate(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestGet_networkFailure(t *testing.T) {
	c, err := NewClient(Credentials{BaseURL: "http://127.0.0.1:1", Username: "u", Password: "p"}, ClientConfig{
		Timeout:           time.Second,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	_, err = c.Authenticate(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		// A refused connection may surface as a timeout on some hosts.
		assert.ErrorIs(t, err, ErrTimeout)
	}
}

func TestCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get_vod_categories", r.URL.Query().Get("action"))
		w.Write([]byte(`[
			{"category_id": 3, "category_name": "Action"},
			{"category_id": "7.0", "category_name": "Drama"},
			{"category_id": "null", "category_name": "Broken"},
			{"category_id": "9"}
		]`))
	})
	cats, err := c.Categories(context.Background(), KindMovie)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, Category{ID: "3", Name: "Action"}, cats[0])
	assert.Equal(t, Category{ID: "7", Name: "Drama"}, cats[1])
	assert.Equal(t, Category{ID: "9", Name: "Category 9"}, cats[2])
}

func TestStreams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get_live_streams", r.URL.Query().Get("action"))
		assert.Equal(t, "10", r.URL.Query().Get("category_id"))
		w.Write([]byte(`[
			{"stream_id": 55, "name": "News HD", "category_id": 10, "category_ids": [10, 12], "stream_icon": "http://x/icon.png"},
			{"name": "no id, skipped"},
			{"stream_id": "56", "name": "Sports", "category_id": "0"}
		]`))
	})
	streams, err := c.Streams(context.Background(), KindLive, "10")
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Equal(t, "55", streams[0].ID)
	assert.Equal(t, "10", streams[0].CategoryID)
	assert.Equal(t, []string{"10", "12"}, streams[0].CategoryIDs)
	assert.Equal(t, "http://x/icon.png", streams[0].Icon)
	assert.Equal(t, "0", streams[1].CategoryID)
}

func TestStreams_noCategoryFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("category_id"))
		w.Write([]byte(`[]`))
	})
	streams, err := c.Streams(context.Background(), KindMovie, "  ")
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestSeriesList_mapShapedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get_series", r.URL.Query().Get("action"))
		w.Write([]byte(`{
			"b": {"series_id": 2, "name": "Beta", "category_id": "4"},
			"a": {"id": 1, "name": "Alpha", "cover": "http://x/a.jpg"}
		}`))
	})
	list, err := c.SeriesList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Map keys are walked in sorted order.
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, "2", list[1].ID)
	assert.Equal(t, "4", list[1].CategoryID)
}

func TestSeriesEpisodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "get_series_info", r.URL.Query().Get("action"))
		assert.Equal(t, "99", r.URL.Query().Get("series_id"))
		w.Write([]byte(`{
			"info": {"name": "Show", "cover": "http://x/c.jpg", "plot": "about things"},
			"episodes": {"1": [{"id": "101", "episode_num": 1, "title": "Pilot"}]}
		}`))
	})
	eps, detail, reason, err := c.SeriesEpisodes(context.Background(), "99", "mp4")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Empty(t, reason)
	assert.Equal(t, "Show", detail.Name)
	assert.Equal(t, "about things", detail.Plot)
	assert.Equal(t, "101", eps[0].ID)
}

func TestSeriesEpisodes_unsupportedReason(t *testing.T) {
	t.Run("top-level message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"episodes": [], "message": "series not available"}`))
		})
		eps, _, reason, err := c.SeriesEpisodes(context.Background(), "99", "mp4")
		require.NoError(t, err)
		assert.Empty(t, eps)
		assert.Equal(t, "series not available", reason)
	})

	t.Run("info message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"info": {"message": "upgrade plan"}}`))
		})
		eps, _, reason, err := c.SeriesEpisodes(context.Background(), "99", "mp4")
		require.NoError(t, err)
		assert.Empty(t, eps)
		assert.Equal(t, "upgrade plan", reason)
	})
}
