package repo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/snapetech/xtreamsync/internal/xtream"
)

// ListCategories returns an account's categories for one kind, in upstream
// order (ties broken by name).
func (r *Repository) ListCategories(ctx context.Context, accountID string, kind xtream.MediaKind) ([]MediaCategory, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT account_id, media_kind, category_id, name, order_index, updated_at
		 FROM categories WHERE account_id = ? AND media_kind = ?
		 ORDER BY order_index, name COLLATE NOCASE`, accountID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MediaCategory
	for rows.Next() {
		var c MediaCategory
		var kindStr string
		var updated int64
		if err := rows.Scan(&c.AccountID, &kindStr, &c.CategoryID, &c.Name, &c.OrderIndex, &updated); err != nil {
			return nil, err
		}
		c.Kind = xtream.MediaKind(kindStr)
		c.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListStreams returns an account's streams for one kind, optionally narrowed
// to a category. Without a category, all of the kind's rows come back sorted
// by title; with one, upstream insertion order within the category is kept.
func (r *Repository) ListStreams(ctx context.Context, accountID string, kind xtream.MediaKind, categoryID string) ([]MediaStream, error) {
	query := `SELECT account_id, media_kind, category_id, stream_id, title, playback_url, COALESCE(logo_url, '')
		 FROM streams WHERE account_id = ? AND media_kind = ?`
	args := []any{accountID, string(kind)}
	if categoryID != "" {
		query += ` AND category_id = ? ORDER BY rowid`
		args = append(args, categoryID)
	} else {
		query += ` ORDER BY title COLLATE NOCASE, category_id, stream_id`
	}
	rows, err := r.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MediaStream
	for rows.Next() {
		var s MediaStream
		var kindStr string
		if err := rows.Scan(&s.AccountID, &kindStr, &s.CategoryID, &s.StreamID, &s.Title, &s.PlaybackURL, &s.LogoURL); err != nil {
			return nil, err
		}
		s.Kind = xtream.MediaKind(kindStr)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSeries returns an account's shows, optionally narrowed to a category,
// sorted by title.
func (r *Repository) ListSeries(ctx context.Context, accountID, categoryID string) ([]SeriesRecord, error) {
	query := `SELECT account_id, category_id, series_id, title, COALESCE(cover_url, ''), COALESCE(synopsis, '')
		 FROM series WHERE account_id = ?`
	args := []any{accountID}
	if categoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY title COLLATE NOCASE, series_id`
	rows, err := r.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeriesRecord
	for rows.Next() {
		var s SeriesRecord
		if err := rows.Scan(&s.AccountID, &s.CategoryID, &s.SeriesID, &s.Title, &s.CoverURL, &s.Synopsis); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListEpisodes returns a series' cached episodes ordered by season, then
// episode number.
func (r *Repository) ListEpisodes(ctx context.Context, accountID, seriesID string) ([]SeriesEpisode, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT account_id, series_id, episode_id, season, episode_num, title, playback_url, COALESCE(overview, '')
		 FROM episodes WHERE account_id = ? AND series_id = ?
		 ORDER BY season, episode_num, episode_id`, accountID, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeriesEpisode
	for rows.Next() {
		var ep SeriesEpisode
		if err := rows.Scan(&ep.AccountID, &ep.SeriesID, &ep.EpisodeID, &ep.Season, &ep.Number, &ep.Title, &ep.PlaybackURL, &ep.Overview); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE wildcards in user input; queries use ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Search matches query as a case-insensitive substring of stream, episode and
// series titles. accountID may be empty to search every account. Streams and
// episodes come back as playable hits deduplicated by favorite key; series as
// open-series pointers deduplicated by (account, series). Results sort
// case-insensitively by title.
func (r *Repository) Search(ctx context.Context, accountID, query string) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	var results []SearchResult
	seenPlayable := make(map[string]bool)
	seenSeries := make(map[string]bool)

	scope := func(base string) (string, []any) {
		args := []any{pattern}
		if accountID != "" {
			base += ` AND account_id = ?`
			args = append(args, accountID)
		}
		return base, args
	}

	stmt, args := scope(`SELECT account_id, media_kind, stream_id, title, playback_url
		 FROM streams WHERE LOWER(title) LIKE ? ESCAPE '\'`)
	rows, err := r.store.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var acc, kindStr, id, title, url string
		if err := rows.Scan(&acc, &kindStr, &id, &title, &url); err != nil {
			rows.Close()
			return nil, err
		}
		p := PlayableItem{ID: id, Title: title, StreamURL: url, Kind: xtream.MediaKind(kindStr), AccountID: acc}
		p.Subtitle = p.Kind.Label()
		if key := p.FavoriteKey(); !seenPlayable[key] {
			seenPlayable[key] = true
			results = append(results, SearchResult{Kind: ResultPlayable, Playable: &p})
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	stmt, args = scope(`SELECT account_id, series_id, episode_id, title, playback_url
		 FROM episodes WHERE LOWER(title) LIKE ? ESCAPE '\'`)
	rows, err = r.store.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var acc, seriesID, id, title, url string
		if err := rows.Scan(&acc, &seriesID, &id, &title, &url); err != nil {
			rows.Close()
			return nil, err
		}
		p := PlayableItem{ID: id, Title: title, StreamURL: url, Kind: xtream.KindSeries, AccountID: acc}
		p.Subtitle = xtream.KindSeries.Label()
		if key := p.FavoriteKey(); !seenPlayable[key] {
			seenPlayable[key] = true
			results = append(results, SearchResult{Kind: ResultPlayable, Playable: &p})
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	stmt, args = scope(`SELECT account_id, category_id, series_id, title, COALESCE(cover_url, ''), COALESCE(synopsis, '')
		 FROM series WHERE LOWER(title) LIKE ? ESCAPE '\'`)
	rows, err = r.store.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s SeriesRecord
		if err := rows.Scan(&s.AccountID, &s.CategoryID, &s.SeriesID, &s.Title, &s.CoverURL, &s.Synopsis); err != nil {
			rows.Close()
			return nil, err
		}
		key := s.AccountID + "|" + s.SeriesID
		if !seenSeries[key] {
			seenSeries[key] = true
			rec := s
			results = append(results, SearchResult{Kind: ResultSeries, Series: &rec})
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return strings.ToLower(results[i].Title()) < strings.ToLower(results[j].Title())
	})
	return results, nil
}

type closableRows interface {
	Close() error
	Err() error
}

func closeRows(rows closableRows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
