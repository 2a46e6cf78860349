// Package xtream implements a client for Xtream-Codes style panel APIs:
// credential/URL handling, the player_api.php call surface, and a tolerant
// parser for the provider's irregular JSON (categories, streams, series,
// episode trees).
package xtream

// MediaKind selects one of the three content surfaces a panel exposes.
type MediaKind string

const (
	KindLive   MediaKind = "live"
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// Kinds lists all media kinds in sync order (live, movie, series).
func Kinds() []MediaKind {
	return []MediaKind{KindLive, KindMovie, KindSeries}
}

// CategoriesAction returns the player_api action listing this kind's categories.
func (k MediaKind) CategoriesAction() string {
	switch k {
	case KindLive:
		return "get_live_categories"
	case KindMovie:
		return "get_vod_categories"
	default:
		return "get_series_categories"
	}
}

// StreamsAction returns the player_api action listing this kind's items.
// Series listings go through get_series; their episodes need get_series_info.
func (k MediaKind) StreamsAction() string {
	switch k {
	case KindLive:
		return "get_live_streams"
	case KindMovie:
		return "get_vod_streams"
	default:
		return "get_series"
	}
}

// PathSegment returns the URL path segment used when building playback URLs.
// The panel uses "movie" for VOD even though the listing action says "vod".
func (k MediaKind) PathSegment() string {
	switch k {
	case KindLive:
		return "live"
	case KindMovie:
		return "movie"
	default:
		return "series"
	}
}

// Label is a short human-readable name for the kind, used in playable
// subtitles and log lines.
func (k MediaKind) Label() string {
	switch k {
	case KindLive:
		return "Live TV"
	case KindMovie:
		return "Movies"
	default:
		return "Series"
	}
}

// Valid reports whether k is one of the three known kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case KindLive, KindMovie, KindSeries:
		return true
	}
	return false
}
