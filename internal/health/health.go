// Package health answers liveness questions: is the cache database usable,
// and does the provider still respond at all.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/snapetech/xtreamsync/internal/httpclient"
)

// Handler serves a /healthz endpoint backed by a database ping. 503 when the
// cache store stopped answering.
func Handler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	}
}

// CheckProvider performs an unauthenticated GET against the panel's
// player_api endpoint. Any answer below 500 counts as reachable; panels
// return 200 with auth=0 or a 4xx for missing credentials, and either proves
// the host is alive.
func CheckProvider(ctx context.Context, client *http.Client, baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("no provider URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/player_api.php", nil)
	if err != nil {
		return err
	}
	if client == nil {
		client = httpclient.Default()
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
	}
	return nil
}
