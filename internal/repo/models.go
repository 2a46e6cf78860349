package repo

import (
	"strings"
	"time"

	"github.com/snapetech/xtreamsync/internal/xtream"
)

// ProviderAccount is one configured panel login. The only rows in the store
// that are not a disposable mirror of upstream state are accounts and
// favorites; everything else can be cleared and rebuilt at any time.
type ProviderAccount struct {
	ID          string
	DisplayName string
	BaseURL     string
	Username    string
	Password    string
	UpdatedAt   time.Time
}

// Credentials returns the account's API credentials with a normalized base URL.
func (a ProviderAccount) Credentials() xtream.Credentials {
	return xtream.Credentials{
		BaseURL:  xtream.NormalizeBaseURL(a.BaseURL),
		Username: a.Username,
		Password: a.Password,
	}
}

// AccountDraft is user input for creating or editing an account.
type AccountDraft struct {
	DisplayName string
	BaseURL     string
	Username    string
	Password    string
}

// MediaCategory is one provider category, scoped to an account and kind.
type MediaCategory struct {
	AccountID  string
	Kind       xtream.MediaKind
	CategoryID string
	Name       string
	OrderIndex int
	UpdatedAt  time.Time
}

// MediaStream is one live channel or movie's membership in one category. A
// stream in several categories has one row per category, all sharing StreamID.
type MediaStream struct {
	AccountID   string
	Kind        xtream.MediaKind
	CategoryID  string
	StreamID    string
	Title       string
	PlaybackURL string
	LogoURL     string
}

// SeriesRecord is one show's membership in one category.
type SeriesRecord struct {
	AccountID  string
	CategoryID string
	SeriesID   string
	Title      string
	CoverURL   string
	Synopsis   string
}

// SeriesEpisode is one cached episode. Episodes materialize on first view,
// not during bulk sync, and are wholly replaced on each refetch.
type SeriesEpisode struct {
	AccountID   string
	SeriesID    string
	EpisodeID   string
	Season      int
	Number      int
	Title       string
	PlaybackURL string
	Overview    string
}

// FavoriteItem is a user-saved playable. Its key, not a surrogate ID, is the
// identity, so toggling twice is idempotent and the row survives re-syncs as
// long as the item's ID and URL are stable.
type FavoriteItem struct {
	Key         string
	AccountID   string
	Kind        xtream.MediaKind
	ItemID      string
	Title       string
	PlaybackURL string
	CreatedAt   time.Time
}

// PlayableItem is the value object handed to the playback surface. The engine
// never plays anything itself.
type PlayableItem struct {
	ID        string
	Title     string
	Subtitle  string
	StreamURL string
	Kind      xtream.MediaKind
	AccountID string
}

// FavoriteKey is the deterministic composite identity used to dedupe and
// toggle favorites.
func (p PlayableItem) FavoriteKey() string {
	return strings.Join([]string{p.AccountID, string(p.Kind), p.ID, p.StreamURL}, "|")
}

// SearchResultKind tags what a search hit is.
type SearchResultKind string

const (
	// ResultPlayable is a directly playable hit (stream or episode).
	ResultPlayable SearchResultKind = "playable"
	// ResultSeries is an "open series" pointer; episodes load on selection.
	ResultSeries SearchResultKind = "series"
)

// SearchResult is one hit from Repository.Search.
type SearchResult struct {
	Kind     SearchResultKind
	Playable *PlayableItem // set when Kind == ResultPlayable
	Series   *SeriesRecord // set when Kind == ResultSeries
}

// Title returns the display title regardless of kind.
func (r SearchResult) Title() string {
	if r.Playable != nil {
		return r.Playable.Title
	}
	if r.Series != nil {
		return r.Series.Title
	}
	return ""
}

// EpisodesResult is the outcome of LoadEpisodes. Exactly one of Episodes or
// Fallback is populated; UnsupportedReason accompanies a fallback when the
// panel explained why it has no structured episodes.
type EpisodesResult struct {
	Episodes          []SeriesEpisode
	Fallback          *PlayableItem
	UnsupportedReason string
}
