package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snapetech/xtreamsync/internal/xtream"
)

// playbackEnv is the per-sync playback context: credentials derived from the
// just-completed auth response plus the provider's preferred containers.
type playbackEnv struct {
	creds     xtream.Credentials
	liveExt   string
	vodExt    string
	seriesExt string
}

// derivePlaybackEnv builds playback credentials from an auth response. The
// panel may hand back different effective credentials and a different
// streaming host than the API host.
func derivePlaybackEnv(account ProviderAccount, auth xtream.AuthResponse) playbackEnv {
	creds := account.Credentials()
	if auth.Username != "" {
		creds.Username = auth.Username
	}
	if auth.Password != "" {
		creds.Password = auth.Password
	}
	creds.BaseURL = xtream.ResolvePlaybackBase(auth, account.BaseURL)
	return playbackEnv{
		creds:     creds,
		liveExt:   xtream.PreferredContainer(auth.AllowedOutputFormats, xtream.KindLive),
		vodExt:    xtream.PreferredContainer(auth.AllowedOutputFormats, xtream.KindMovie),
		seriesExt: xtream.PreferredContainer(auth.AllowedOutputFormats, xtream.KindSeries),
	}
}

// stagedCatalog accumulates one full sync's rows in memory. Nothing touches
// the store until every phase has fetched, so a mid-pipeline failure leaves
// the previously cached catalog fully intact.
type stagedCatalog struct {
	categories []MediaCategory
	streams    []MediaStream
	series     []SeriesRecord
}

// FullSync runs the whole pipeline for one account: authenticate, fetch live,
// VOD and series catalogs, then clear-and-replace the account's cache in a
// single transaction. Favorites are never touched. The step tracker publishes
// each phase as it starts; on failure the failing step stays observable.
func (r *Repository) FullSync(ctx context.Context, account ProviderAccount) (ProviderAccount, error) {
	log := r.log.WithFields(logrus.Fields{"account": account.ID, "base_url": account.BaseURL})
	staged, err := r.fetchCatalog(ctx, log, account)
	if err != nil {
		r.progress.fail(account.ID, err)
		r.metrics.SyncsTotal.WithLabelValues("error").Inc()
		return ProviderAccount{}, err
	}

	commitStart := time.Now()
	account.UpdatedAt = time.Now().UTC()
	r.writeMu.Lock()
	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		return commitCatalog(ctx, tx, account, staged)
	})
	r.writeMu.Unlock()
	if err != nil {
		r.progress.fail(account.ID, err)
		r.metrics.SyncsTotal.WithLabelValues("error").Inc()
		return ProviderAccount{}, err
	}
	r.metrics.SyncPhase.WithLabelValues("commit").Observe(time.Since(commitStart).Seconds())
	r.metrics.SyncsTotal.WithLabelValues("ok").Inc()
	r.observeCatalogSize(staged)
	r.progress.finish(account.ID)
	log.WithFields(logrus.Fields{
		"categories": len(staged.categories),
		"streams":    len(staged.streams),
		"series":     len(staged.series),
	}).Info("full sync committed")
	return account, nil
}

// fetchCatalog runs the network half of a full sync and stages the result.
func (r *Repository) fetchCatalog(ctx context.Context, log logrus.FieldLogger, account ProviderAccount) (*stagedCatalog, error) {
	r.progress.set(account.ID, StepAuthenticate)
	phaseStart := time.Now()
	client, err := r.newClient(account.Credentials())
	if err != nil {
		return nil, err
	}
	auth, err := client.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	r.metrics.SyncPhase.WithLabelValues("authenticate").Observe(time.Since(phaseStart).Seconds())
	log.WithFields(logrus.Fields{"status": auth.Status, "expires": auth.ExpiresAt}).Info("provider authenticated")

	env := derivePlaybackEnv(account, auth)
	now := time.Now().UTC()
	staged := &stagedCatalog{}

	for _, phase := range []struct {
		step SyncStep
		kind xtream.MediaKind
	}{
		{StepLive, xtream.KindLive},
		{StepVOD, xtream.KindMovie},
		{StepSeries, xtream.KindSeries},
	} {
		r.progress.set(account.ID, phase.step)
		phaseStart = time.Now()
		if err := r.fetchKind(ctx, client, account, env, phase.kind, now, staged); err != nil {
			return nil, err
		}
		r.metrics.SyncPhase.WithLabelValues(phase.step.String()).Observe(time.Since(phaseStart).Seconds())
	}
	return staged, nil
}

func (r *Repository) fetchKind(ctx context.Context, client ProviderAPI, account ProviderAccount, env playbackEnv, kind xtream.MediaKind, now time.Time, staged *stagedCatalog) error {
	cats, err := client.Categories(ctx, kind)
	if err != nil {
		return err
	}
	for i, c := range cats {
		staged.categories = append(staged.categories, MediaCategory{
			AccountID:  account.ID,
			Kind:       kind,
			CategoryID: c.ID,
			Name:       c.Name,
			OrderIndex: i,
			UpdatedAt:  now,
		})
	}

	if kind == xtream.KindSeries {
		list, err := client.SeriesList(ctx, "")
		if err != nil {
			return err
		}
		staged.series = append(staged.series, stageSeries(account.ID, list)...)
		return nil
	}

	streams, err := client.Streams(ctx, kind, "")
	if err != nil {
		return err
	}
	staged.streams = append(staged.streams, stageStreams(account.ID, kind, env, streams)...)
	return nil
}

// stageStreams expands provider stream rows into one row per category
// membership, skipping (streamID, categoryID) pairs already seen this pass;
// panels repeat pairings freely.
func stageStreams(accountID string, kind xtream.MediaKind, env playbackEnv, streams []xtream.Stream) []MediaStream {
	defaultExt := env.liveExt
	if kind == xtream.KindMovie {
		defaultExt = env.vodExt
	}
	seen := make(map[[2]string]bool, len(streams))
	out := make([]MediaStream, 0, len(streams))
	for _, s := range streams {
		ext := s.ContainerExtension
		if xtream.NormalizeContainerExt(ext) == "" {
			ext = defaultExt
		}
		url := xtream.BuildPlaybackURL(env.creds, kind, s.ID, ext, s.DirectSource)
		title := s.Name
		if title == "" {
			title = "Stream " + s.ID
		}
		for _, catID := range categoryMemberships(s.CategoryID, s.CategoryIDs) {
			key := [2]string{s.ID, catID}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, MediaStream{
				AccountID:   accountID,
				Kind:        kind,
				CategoryID:  catID,
				StreamID:    s.ID,
				Title:       title,
				PlaybackURL: url,
				LogoURL:     s.Icon,
			})
		}
	}
	return out
}

// stageSeries applies the same membership expansion and dedup to shows.
func stageSeries(accountID string, list []xtream.Series) []SeriesRecord {
	seen := make(map[[2]string]bool, len(list))
	out := make([]SeriesRecord, 0, len(list))
	for _, s := range list {
		title := s.Name
		if title == "" {
			title = "Series " + s.ID
		}
		for _, catID := range categoryMemberships(s.CategoryID, s.CategoryIDs) {
			key := [2]string{s.ID, catID}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, SeriesRecord{
				AccountID:  accountID,
				CategoryID: catID,
				SeriesID:   s.ID,
				Title:      title,
				CoverURL:   s.Cover,
				Synopsis:   s.Plot,
			})
		}
	}
	return out
}

// commitCatalog replaces the account's entire cached catalog inside one
// transaction: clear everything (episodes included, they re-materialize on
// demand), upsert the account row, insert the staged rows.
func commitCatalog(ctx context.Context, tx *sql.Tx, account ProviderAccount, staged *stagedCatalog) error {
	for _, stmt := range []string{
		`DELETE FROM categories WHERE account_id = ?`,
		`DELETE FROM streams WHERE account_id = ?`,
		`DELETE FROM series WHERE account_id = ?`,
		`DELETE FROM episodes WHERE account_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, account.ID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, display_name, base_url, username, password, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name, base_url = excluded.base_url,
		   username = excluded.username, password = excluded.password, updated_at = excluded.updated_at`,
		account.ID, account.DisplayName, account.BaseURL, account.Username, account.Password, account.UpdatedAt.Unix()); err != nil {
		return err
	}
	for _, c := range staged.categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (account_id, media_kind, category_id, name, order_index, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.AccountID, string(c.Kind), c.CategoryID, c.Name, c.OrderIndex, c.UpdatedAt.Unix()); err != nil {
			return err
		}
	}
	for _, s := range staged.streams {
		if err := insertStream(ctx, tx, s); err != nil {
			return err
		}
	}
	for _, s := range staged.series {
		if err := insertSeries(ctx, tx, s); err != nil {
			return err
		}
	}
	return nil
}

// insertStream inserts one membership row; first occurrence wins on conflict.
func insertStream(ctx context.Context, tx *sql.Tx, s MediaStream) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO streams (account_id, media_kind, category_id, stream_id, title, playback_url, logo_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.AccountID, string(s.Kind), s.CategoryID, s.StreamID, s.Title, s.PlaybackURL, s.LogoURL)
	return err
}

func insertSeries(ctx context.Context, tx *sql.Tx, s SeriesRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO series (account_id, category_id, series_id, title, cover_url, synopsis)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.AccountID, s.CategoryID, s.SeriesID, s.Title, s.CoverURL, s.Synopsis)
	return err
}

func (r *Repository) observeCatalogSize(staged *stagedCatalog) {
	var live, movie int
	for _, s := range staged.streams {
		if s.Kind == xtream.KindLive {
			live++
		} else {
			movie++
		}
	}
	r.metrics.ProviderItems.WithLabelValues("live").Set(float64(live))
	r.metrics.ProviderItems.WithLabelValues("movie").Set(float64(movie))
	r.metrics.ProviderItems.WithLabelValues("series").Set(float64(len(staged.series)))
}
