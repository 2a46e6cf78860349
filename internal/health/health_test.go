package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/xtreamsync/internal/store"
)

func TestHandler_ok(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	rec := httptest.NewRecorder()
	Handler(st.DB())(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_closedStore(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	st.Close()

	rec := httptest.NewRecorder()
	Handler(st.DB())(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckProvider(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/player_api.php", r.URL.Path)
			w.Write([]byte(`{"user_info":{"auth":0}}`))
		}))
		defer srv.Close()
		assert.NoError(t, CheckProvider(context.Background(), srv.Client(), srv.URL))
	})

	t.Run("unauthenticated 4xx still reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()
		assert.NoError(t, CheckProvider(context.Background(), srv.Client(), srv.URL))
	})

	t.Run("5xx is down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		assert.Error(t, CheckProvider(context.Background(), srv.Client(), srv.URL))
	})

	t.Run("no URL", func(t *testing.T) {
		assert.Error(t, CheckProvider(context.Background(), nil, ""))
	})
}
