package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/snapetech/xtreamsync/internal/xtream"
)

// authedClient re-authenticates an account and returns the client plus the
// playback environment derived from the fresh auth response.
func (r *Repository) authedClient(ctx context.Context, account ProviderAccount) (ProviderAPI, playbackEnv, error) {
	client, err := r.newClient(account.Credentials())
	if err != nil {
		return nil, playbackEnv{}, err
	}
	auth, err := client.Authenticate(ctx)
	if err != nil {
		return nil, playbackEnv{}, err
	}
	return client, derivePlaybackEnv(account, auth), nil
}

// categoryFilterRejected reports whether an error from a category-filtered
// listing looks like the panel not supporting the filter (rather than a
// credential or transport problem worth surfacing).
func categoryFilterRejected(err error) bool {
	var se *xtream.StatusError
	var de *xtream.DecodeError
	return errors.As(err, &se) || errors.As(err, &de)
}

// RefreshCategory re-fetches one category's items and replaces only that
// (kind, category) scope, leaving every other category's cached rows
// untouched. Panels that reject category-filtered queries get a full-kind
// refresh instead. The context doubles as the cancellation token: a stale
// auto-refresh cancelled by a newer selection never writes, because ctx is
// re-checked after the network round trip and the commit transaction itself
// runs under it.
func (r *Repository) RefreshCategory(ctx context.Context, accountID string, kind xtream.MediaKind, categoryID string) error {
	if !kind.Valid() || categoryID == "" {
		return xtream.ErrInvalidInput
	}
	account, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("refresh: load account: %w", err)
	}
	client, env, err := r.authedClient(ctx, account)
	if err != nil {
		r.metrics.RefreshTotal.WithLabelValues(string(kind), "error").Inc()
		return err
	}

	var refreshErr error
	if kind == xtream.KindSeries {
		refreshErr = r.refreshSeriesCategory(ctx, client, account, categoryID)
	} else {
		refreshErr = r.refreshStreamCategory(ctx, client, account, env, kind, categoryID)
	}
	result := "ok"
	if refreshErr != nil {
		result = "error"
	}
	r.metrics.RefreshTotal.WithLabelValues(string(kind), result).Inc()
	return refreshErr
}

func (r *Repository) refreshStreamCategory(ctx context.Context, client ProviderAPI, account ProviderAccount, env playbackEnv, kind xtream.MediaKind, categoryID string) error {
	streams, err := client.Streams(ctx, kind, categoryID)
	if err != nil {
		if !categoryFilterRejected(err) {
			return err
		}
		r.log.WithField("category", categoryID).Warn("panel rejected category filter, falling back to full-kind refresh")
		streams, err = client.Streams(ctx, kind, "")
		if err != nil {
			return err
		}
		return r.replaceKindStreams(ctx, account.ID, kind, stageStreams(account.ID, kind, env, streams))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Filtered results belong to the requested category regardless of what
	// their membership fields claim; pin them so the replace stays scoped.
	staged := stageStreams(account.ID, kind, env, streams)
	rows := make([]MediaStream, 0, len(streams))
	seen := make(map[string]bool, len(staged))
	for _, s := range staged {
		if seen[s.StreamID] {
			continue
		}
		seen[s.StreamID] = true
		s.CategoryID = categoryID
		rows = append(rows, s)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM streams WHERE account_id = ? AND media_kind = ? AND category_id = ?`,
			account.ID, string(kind), categoryID); err != nil {
			return err
		}
		for _, s := range rows {
			if err := insertStream(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) replaceKindStreams(ctx context.Context, accountID string, kind xtream.MediaKind, rows []MediaStream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM streams WHERE account_id = ? AND media_kind = ?`, accountID, string(kind)); err != nil {
			return err
		}
		for _, s := range rows {
			if err := insertStream(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) refreshSeriesCategory(ctx context.Context, client ProviderAPI, account ProviderAccount, categoryID string) error {
	list, err := client.SeriesList(ctx, categoryID)
	if err != nil {
		if !categoryFilterRejected(err) {
			return err
		}
		r.log.WithField("category", categoryID).Warn("panel rejected category filter, falling back to full series refresh")
		list, err = client.SeriesList(ctx, "")
		if err != nil {
			return err
		}
		return r.replaceAllSeries(ctx, account.ID, stageSeries(account.ID, list))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := stageSeries(account.ID, list)
	rows := make([]SeriesRecord, 0, len(list))
	seen := make(map[string]bool, len(staged))
	for _, s := range staged {
		if seen[s.SeriesID] {
			continue
		}
		seen[s.SeriesID] = true
		s.CategoryID = categoryID
		rows = append(rows, s)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM series WHERE account_id = ? AND category_id = ?`, account.ID, categoryID); err != nil {
			return err
		}
		for _, s := range rows {
			if err := insertSeries(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) replaceAllSeries(ctx context.Context, accountID string, rows []SeriesRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM series WHERE account_id = ?`, accountID); err != nil {
			return err
		}
		for _, s := range rows {
			if err := insertSeries(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadEpisodes serves a series' episodes: from cache unless forced, otherwise
// fetched fresh and swapped in with delete-then-insert. Providers that expose
// a show as one undifferentiated stream yield zero structured episodes; those
// get a synthesized fallback playable built from the series ID itself,
// alongside whatever reason the panel gave.
func (r *Repository) LoadEpisodes(ctx context.Context, accountID, seriesID string, forceRefresh bool) (EpisodesResult, error) {
	if !forceRefresh {
		cached, err := r.ListEpisodes(ctx, accountID, seriesID)
		if err != nil {
			return EpisodesResult{}, err
		}
		if len(cached) > 0 {
			r.metrics.EpisodeLoads.WithLabelValues("cache").Inc()
			return EpisodesResult{Episodes: cached}, nil
		}
	}

	account, err := r.GetAccount(ctx, accountID)
	if err != nil {
		return EpisodesResult{}, fmt.Errorf("load episodes: load account: %w", err)
	}
	client, env, err := r.authedClient(ctx, account)
	if err != nil {
		return EpisodesResult{}, err
	}
	eps, detail, reason, err := client.SeriesEpisodes(ctx, seriesID, env.seriesExt)
	if err != nil {
		return EpisodesResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return EpisodesResult{}, err
	}

	if len(eps) == 0 {
		r.metrics.EpisodeLoads.WithLabelValues("fallback").Inc()
		title := detail.Name
		if title == "" {
			title = r.seriesTitle(ctx, accountID, seriesID)
		}
		return EpisodesResult{
			Fallback: &PlayableItem{
				ID:        seriesID,
				Title:     title,
				Subtitle:  xtream.KindSeries.Label(),
				StreamURL: xtream.BuildPlaybackURL(env.creds, xtream.KindSeries, seriesID, env.seriesExt, ""),
				Kind:      xtream.KindSeries,
				AccountID: accountID,
			},
			UnsupportedReason: reason,
		}, nil
	}

	rows := make([]SeriesEpisode, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, SeriesEpisode{
			AccountID:   accountID,
			SeriesID:    seriesID,
			EpisodeID:   ep.ID,
			Season:      ep.Season,
			Number:      ep.Number,
			Title:       ep.Title,
			PlaybackURL: ep.StreamURL,
			Overview:    ep.Overview,
		})
	}
	r.writeMu.Lock()
	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM episodes WHERE account_id = ? AND series_id = ?`, accountID, seriesID); err != nil {
			return err
		}
		for _, ep := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO episodes (account_id, series_id, episode_id, season, episode_num, title, playback_url, overview)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				ep.AccountID, ep.SeriesID, ep.EpisodeID, ep.Season, ep.Number, ep.Title, ep.PlaybackURL, ep.Overview); err != nil {
				return err
			}
		}
		// The info block often carries richer detail than the bulk listing;
		// refresh the cached series rows opportunistically.
		if detail.Plot != "" || detail.Cover != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE series SET
				   synopsis = CASE WHEN ? != '' THEN ? ELSE synopsis END,
				   cover_url = CASE WHEN ? != '' THEN ? ELSE cover_url END
				 WHERE account_id = ? AND series_id = ?`,
				detail.Plot, detail.Plot, detail.Cover, detail.Cover, accountID, seriesID); err != nil {
				return err
			}
		}
		return nil
	})
	r.writeMu.Unlock()
	if err != nil {
		return EpisodesResult{}, err
	}
	r.metrics.EpisodeLoads.WithLabelValues("provider").Inc()

	fresh, err := r.ListEpisodes(ctx, accountID, seriesID)
	if err != nil {
		return EpisodesResult{}, err
	}
	return EpisodesResult{Episodes: fresh}, nil
}

func (r *Repository) seriesTitle(ctx context.Context, accountID, seriesID string) string {
	var title string
	err := r.store.DB().QueryRowContext(ctx,
		`SELECT title FROM series WHERE account_id = ? AND series_id = ? LIMIT 1`, accountID, seriesID).Scan(&title)
	if err != nil || title == "" {
		return "Series " + seriesID
	}
	return title
}
