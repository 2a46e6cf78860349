package xtream

import (
	"github.com/snapetech/xtreamsync/internal/flexjson"
)

// AuthResponse is the flattened player_api auth payload. Every field is
// flexible-decoded because panels disagree on whether ports and flags are
// numbers or strings.
type AuthResponse struct {
	Username      string
	Password      string
	Authenticated bool
	Status        string
	ExpiresAt     string

	ServerURL      string
	Port           string
	HTTPSPort      string
	ServerProtocol string

	AllowedOutputFormats []string
}

func str(m map[string]any, key string) string {
	s, _ := flexjson.AsString(m[key])
	return s
}

func subMap(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

// decodeAuth maps a raw auth payload into an AuthResponse. The auth flag
// defaults to true when the field is missing: many panels omit it entirely and
// signal rejection with HTTP 401 instead.
func decodeAuth(root map[string]any) AuthResponse {
	user := subMap(root, "user_info")
	server := subMap(root, "server_info")

	auth := AuthResponse{
		Username:       str(user, "username"),
		Password:       str(user, "password"),
		Status:         str(user, "status"),
		ExpiresAt:      str(user, "exp_date"),
		ServerURL:      str(server, "url"),
		Port:           str(server, "port"),
		HTTPSPort:      str(server, "https_port"),
		ServerProtocol: str(server, "server_protocol"),
		Authenticated:  true,
	}
	if user != nil {
		if ok, known := flexjson.AsBool(user["auth"]); known {
			auth.Authenticated = ok
		}
	}
	if formats, ok := user["allowed_output_formats"].([]any); ok {
		for _, f := range formats {
			if s, ok := flexjson.AsString(f); ok && s != "" {
				auth.AllowedOutputFormats = append(auth.AllowedOutputFormats, s)
			}
		}
	}
	return auth
}

// Category is one provider category row.
type Category struct {
	ID   string
	Name string
}

func decodeCategories(raw []any) []Category {
	out := make([]Category, 0, len(raw))
	for _, el := range raw {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		id, ok := flexjson.NormalizeCategoryID(str(m, "category_id"))
		if !ok {
			continue
		}
		name := str(m, "category_name")
		if name == "" {
			name = "Category " + id
		}
		out = append(out, Category{ID: id, Name: name})
	}
	return out
}

// Stream is one live channel or VOD item as listed by the panel, with its
// category membership fields kept raw for the caller's dedup pass.
type Stream struct {
	ID                 string
	Name               string
	Icon               string
	CategoryID         string   // primary category_id, normalized ("" if absent)
	CategoryIDs        []string // category_ids list, normalized + deduped
	ContainerExtension string
	DirectSource       string
}

func decodeStreams(raw []any) []Stream {
	out := make([]Stream, 0, len(raw))
	for _, el := range raw {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		id, ok := flexjson.AsString(m["stream_id"])
		if !ok || id == "" {
			continue
		}
		primary, _ := flexjson.NormalizeCategoryID(str(m, "category_id"))
		out = append(out, Stream{
			ID:                 id,
			Name:               str(m, "name"),
			Icon:               str(m, "stream_icon"),
			CategoryID:         primary,
			CategoryIDs:        flexjson.CategoryIDList(m["category_ids"]),
			ContainerExtension: str(m, "container_extension"),
			DirectSource:       str(m, "direct_source"),
		})
	}
	return out
}

// Series is one show as listed by get_series.
type Series struct {
	ID          string
	Name        string
	Cover       string
	Plot        string
	CategoryID  string
	CategoryIDs []string
}

func decodeSeriesList(raw []any) []Series {
	out := make([]Series, 0, len(raw))
	for _, el := range raw {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		id, ok := flexjson.AsString(m["series_id"])
		if !ok || id == "" {
			id, ok = flexjson.AsString(m["id"])
			if !ok || id == "" {
				continue
			}
		}
		primary, _ := flexjson.NormalizeCategoryID(str(m, "category_id"))
		out = append(out, Series{
			ID:          id,
			Name:        str(m, "name"),
			Cover:       str(m, "cover"),
			Plot:        str(m, "plot"),
			CategoryID:  primary,
			CategoryIDs: flexjson.CategoryIDList(m["category_ids"]),
		})
	}
	return out
}

// Episode is one flattened episode from a series-info response.
type Episode struct {
	ID        string
	Season    int
	Number    int
	Title     string
	StreamURL string
	Overview  string
}

// SeriesDetail carries the optional info block of a series-info response,
// used to refresh the cached series row when episodes are loaded.
type SeriesDetail struct {
	Name  string
	Cover string
	Plot  string
}
