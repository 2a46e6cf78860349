package xtream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/snapetech/xtreamsync/internal/safeurl"
)

// Credentials identify one login against one panel host. BaseURL should be
// normalized with NormalizeBaseURL before use.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// Validate checks the fields needed before any network call.
func (c Credentials) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" || c.Username == "" || c.Password == "" {
		return ErrInvalidInput
	}
	if !safeurl.IsHTTPOrHTTPS(base) {
		return fmt.Errorf("%w: base URL %q", ErrInvalidInput, c.BaseURL)
	}
	return nil
}

// NormalizeBaseURL strips surrounding whitespace and leading/trailing slashes
// so URL composition never produces doubled separators.
func NormalizeBaseURL(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "/")
}

// ResolvePlaybackBase derives the base URL playback streams should use from an
// auth response's server_info block. Panels frequently advertise a different
// host/port for streaming than the one used for API calls. Falls back to
// configuredBase when the response carries no server URL.
func ResolvePlaybackBase(auth AuthResponse, configuredBase string) string {
	host := strings.Trim(strings.TrimSpace(auth.ServerURL), "/")
	if host == "" {
		return NormalizeBaseURL(configuredBase)
	}
	// Some panels put a full URL in server_info.url; keep only the host part.
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")

	scheme := "http"
	if strings.EqualFold(strings.TrimSpace(auth.ServerProtocol), "https") {
		scheme = "https"
	}
	port := strings.TrimSpace(auth.Port)
	httpsPort := strings.TrimSpace(auth.HTTPSPort)
	var chosen string
	if scheme == "https" {
		chosen = httpsPort
		if chosen == "" {
			chosen = port
		}
	} else {
		chosen = port
		if chosen == "" {
			chosen = httpsPort
		}
	}
	if chosen == "" || (scheme == "http" && chosen == "80") || (scheme == "https" && chosen == "443") {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + chosen
}

// NormalizeContainerExt canonicalises a container extension: lowercased,
// leading dots stripped, with the panel's null spellings treated as absent.
func NormalizeContainerExt(raw string) string {
	ext := strings.TrimLeft(strings.ToLower(strings.TrimSpace(raw)), ".")
	switch ext {
	case "", "null", "nil", "none", "undefined", "0":
		return ""
	}
	return ext
}

// BuildPlaybackURL composes the canonical stream URL for an item, or passes a
// provider-supplied direct source through untouched (re-encoded so embedded
// spaces survive). Scheme-relative direct sources inherit the base URL's scheme.
func BuildPlaybackURL(creds Credentials, kind MediaKind, streamID, containerExt, directSource string) string {
	base := NormalizeBaseURL(creds.BaseURL)
	if ds := strings.TrimSpace(directSource); ds != "" {
		if strings.HasPrefix(ds, "//") {
			scheme := "http"
			if strings.HasPrefix(base, "https://") {
				scheme = "https"
			}
			ds = scheme + ":" + ds
		}
		if u, err := url.Parse(ds); err == nil && u.Scheme != "" {
			return u.String()
		}
		return ds
	}
	ext := NormalizeContainerExt(containerExt)
	if ext == "" {
		ext = "m3u8"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		base, kind.PathSegment(),
		url.PathEscape(creds.Username), url.PathEscape(creds.Password),
		url.PathEscape(streamID), url.PathEscape(ext))
}

// containerPriority lists preferred containers per kind, best first.
var (
	livePriority = []string{"m3u8", "ts"}
	vodPriority  = []string{"m3u8", "mp4", "m4v", "mov", "ts", "avi", "mkv"}
)

// PreferredContainer picks the playback container to request from the
// panel-advertised allowed_output_formats. Empty when nothing is advertised.
func PreferredContainer(formats []string, kind MediaKind) string {
	normalized := make([]string, 0, len(formats))
	for _, f := range formats {
		if ext := NormalizeContainerExt(f); ext != "" {
			normalized = append(normalized, ext)
		}
	}
	if len(normalized) == 0 {
		return ""
	}
	priority := vodPriority
	if kind == KindLive {
		priority = livePriority
	}
	for _, want := range priority {
		for _, have := range normalized {
			if have == want {
				return want
			}
		}
	}
	return normalized[0]
}
