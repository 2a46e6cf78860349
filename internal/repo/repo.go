// Package repo is the cache repository: the single owner of the local catalog
// store. It runs full and partial sync workflows against the provider client,
// enforces category-scoped replace and de-duplication semantics, and serves
// every read the UI layer needs.
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/snapetech/xtreamsync/internal/metrics"
	"github.com/snapetech/xtreamsync/internal/store"
	"github.com/snapetech/xtreamsync/internal/xtream"
)

// ProviderAPI is the slice of the xtream client the repository consumes.
// Tests substitute a fake.
type ProviderAPI interface {
	Authenticate(ctx context.Context) (xtream.AuthResponse, error)
	Categories(ctx context.Context, kind xtream.MediaKind) ([]xtream.Category, error)
	Streams(ctx context.Context, kind xtream.MediaKind, categoryID string) ([]xtream.Stream, error)
	SeriesList(ctx context.Context, categoryID string) ([]xtream.Series, error)
	SeriesEpisodes(ctx context.Context, seriesID, defaultExt string) ([]xtream.Episode, xtream.SeriesDetail, string, error)
	Credentials() xtream.Credentials
}

// ClientFactory builds a provider client for a set of credentials. Each sync
// derives fresh playback credentials from its own auth response, so clients
// are cheap throwaway values.
type ClientFactory func(creds xtream.Credentials) (ProviderAPI, error)

// Config assembles a Repository.
type Config struct {
	Store     *store.Store
	NewClient ClientFactory
	Logger    logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// Repository owns all catalog reads and writes. Mutations serialize on one
// mutex (the single-writer domain); reads go straight to the store and see
// whole-transaction snapshots only.
type Repository struct {
	store     *store.Store
	newClient ClientFactory
	log       logrus.FieldLogger
	metrics   *metrics.Metrics

	writeMu  sync.Mutex
	progress *stepTracker
}

// New builds a Repository. Store and NewClient are required; a missing logger
// discards and missing metrics stay unregistered.
func New(cfg Config) (*Repository, error) {
	if cfg.Store == nil || cfg.NewClient == nil {
		return nil, fmt.Errorf("repo: store and client factory are required")
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	return &Repository{
		store:     cfg.Store,
		newClient: cfg.NewClient,
		log:       log,
		metrics:   m,
		progress:  newStepTracker(),
	}, nil
}

// DefaultClientFactory builds real xtream clients with the given timeout.
func DefaultClientFactory(timeout time.Duration, log logrus.FieldLogger) ClientFactory {
	return func(creds xtream.Credentials) (ProviderAPI, error) {
		return xtream.NewClient(creds, xtream.ClientConfig{Timeout: timeout, Logger: log})
	}
}

// CurrentStep reports the phase of an in-flight (or just-failed) full sync.
func (r *Repository) CurrentStep(accountID string) SyncStep {
	return r.progress.step(accountID)
}

// LastFailure reports where the account's last full sync stopped, if it failed.
func (r *Repository) LastFailure(accountID string) (SyncFailure, bool) {
	return r.progress.failure(accountID)
}

// GetAccount loads one account row.
func (r *Repository) GetAccount(ctx context.Context, accountID string) (ProviderAccount, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, display_name, base_url, username, password, updated_at FROM accounts WHERE id = ?`, accountID)
	return scanAccount(row)
}

// ListAccounts returns all configured accounts ordered by display name.
func (r *Repository) ListAccounts(ctx context.Context) ([]ProviderAccount, error) {
	rows, err := r.store.DB().QueryContext(ctx,
		`SELECT id, display_name, base_url, username, password, updated_at FROM accounts ORDER BY display_name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProviderAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(row rowScanner) (ProviderAccount, error) {
	var a ProviderAccount
	var updated int64
	if err := row.Scan(&a.ID, &a.DisplayName, &a.BaseURL, &a.Username, &a.Password, &updated); err != nil {
		return ProviderAccount{}, err
	}
	a.UpdatedAt = time.Unix(updated, 0).UTC()
	return a, nil
}

// FindAccountByLogin returns the account matching base URL + username, used by
// the daemon to recognise an already-configured provider. sql.ErrNoRows when absent.
func (r *Repository) FindAccountByLogin(ctx context.Context, baseURL, username string) (ProviderAccount, error) {
	row := r.store.DB().QueryRowContext(ctx,
		`SELECT id, display_name, base_url, username, password, updated_at FROM accounts WHERE base_url = ? AND username = ?`,
		xtream.NormalizeBaseURL(baseURL), username)
	return scanAccount(row)
}

// SaveAccount creates or edits an account and validates it with a full sync.
// The account row only persists when the whole pipeline succeeds, so a typo'd
// login never leaves a half-configured account behind. editingID is empty for
// a new account.
func (r *Repository) SaveAccount(ctx context.Context, draft AccountDraft, editingID string) (ProviderAccount, error) {
	account := ProviderAccount{
		ID:          editingID,
		DisplayName: draft.DisplayName,
		BaseURL:     xtream.NormalizeBaseURL(draft.BaseURL),
		Username:    draft.Username,
		Password:    draft.Password,
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.DisplayName == "" {
		account.DisplayName = account.Username
	}
	return r.FullSync(ctx, account)
}

// DeleteAccount removes the account and every cache row and favorite scoped
// to it, in one transaction so no orphaned rows can survive a partial failure.
func (r *Repository) DeleteAccount(ctx context.Context, accountID string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM categories WHERE account_id = ?`,
			`DELETE FROM streams WHERE account_id = ?`,
			`DELETE FROM series WHERE account_id = ?`,
			`DELETE FROM episodes WHERE account_id = ?`,
			`DELETE FROM favorites WHERE account_id = ?`,
			`DELETE FROM accounts WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, accountID); err != nil {
				return err
			}
		}
		return nil
	})
}
