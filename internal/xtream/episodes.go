package xtream

import (
	"fmt"
	"sort"

	"github.com/snapetech/xtreamsync/internal/flexjson"
)

// ParseEpisodeTree flattens the arbitrarily-nested "episodes" node of a
// series-info response. Panels ship it as a season-keyed map of arrays, a flat
// array, a single object, or maps nested inside maps; anything unrecognised is
// skipped rather than failing, since payload irregularity is the norm here.
//
// A season number parsed from a map key propagates down as a hint for leaves
// that lack their own season field. defaultExt fills in for leaves without a
// container_extension; fallbackSeriesID stands in for a missing episode ID.
func ParseEpisodeTree(node any, creds Credentials, defaultExt, fallbackSeriesID string) []Episode {
	eps := parseEpisodeNode(node, 0, creds, defaultExt, fallbackSeriesID)
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].Season != eps[j].Season {
			return eps[i].Season < eps[j].Season
		}
		return eps[i].Number < eps[j].Number
	})
	return eps
}

func parseEpisodeNode(node any, seasonHint int, creds Credentials, defaultExt, fallbackSeriesID string) []Episode {
	switch x := node.(type) {
	case map[string]any:
		if looksLikeEpisode(x) {
			return []Episode{makeEpisode(x, seasonHint, creds, defaultExt, fallbackSeriesID)}
		}
		// Season-keyed map: recurse with the key as season hint when numeric.
		// Iterate keys in sorted order so output is deterministic.
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []Episode
		for _, k := range keys {
			hint := seasonHint
			if n, ok := flexjson.AsInt(k); ok {
				hint = n
			}
			out = append(out, parseEpisodeNode(x[k], hint, creds, defaultExt, fallbackSeriesID)...)
		}
		return out
	case []any:
		var out []Episode
		for _, el := range x {
			out = append(out, parseEpisodeNode(el, seasonHint, creds, defaultExt, fallbackSeriesID)...)
		}
		return out
	default:
		return nil
	}
}

func looksLikeEpisode(m map[string]any) bool {
	_, hasID := m["id"]
	_, hasNum := m["episode_num"]
	_, hasStream := m["stream_id"]
	_, hasTitle := m["title"]
	return hasID || hasNum || hasStream || hasTitle
}

func makeEpisode(m map[string]any, seasonHint int, creds Credentials, defaultExt, fallbackSeriesID string) Episode {
	info := subMap(m, "info")

	id := firstString(m, "id", "episode_id", "stream_id")
	if id == "" {
		id = fallbackSeriesID
	}
	season := seasonHint
	if n, ok := flexjson.AsInt(m["season"]); ok {
		season = n
	}
	number := 0
	if n, ok := flexjson.AsInt(m["episode_num"]); ok {
		number = n
	} else if n, ok := flexjson.AsInt(m["episode"]); ok {
		number = n
	}
	title := firstString(m, "title", "name")
	if title == "" {
		title = fmt.Sprintf("S%d E%d", season, number)
	}
	ext := NormalizeContainerExt(str(m, "container_extension"))
	if ext == "" {
		ext = NormalizeContainerExt(defaultExt)
	}
	direct := str(m, "direct_source")
	if direct == "" && info != nil {
		direct = str(info, "direct_source")
	}
	overview := str(m, "plot")
	if overview == "" && info != nil {
		overview = str(info, "plot")
	}

	return Episode{
		ID:        id,
		Season:    season,
		Number:    number,
		Title:     title,
		StreamURL: BuildPlaybackURL(creds, KindSeries, id, ext, direct),
		Overview:  overview,
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := flexjson.AsString(m[k]); ok && s != "" {
			return s
		}
	}
	return ""
}
