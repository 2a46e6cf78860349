package xtream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{BaseURL: "http://host:8080", Username: "u", Password: "p"}

func parseTree(t *testing.T, payload string) []Episode {
	t.Helper()
	var root map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &root))
	return ParseEpisodeTree(root["episodes"], testCreds, "mp4", "555")
}

func TestParseEpisodeTree_seasonKeyedMap(t *testing.T) {
	eps := parseTree(t, `{"episodes": {
		"1": [{"id":"101","episode_num":1,"title":"Pilot","container_extension":"mp4"}],
		"2": [{"id":"102","episode_num":1,"title":"Return","container_extension":"mkv"}]
	}}`)
	require.Len(t, eps, 2)
	assert.Equal(t, 1, eps[0].Season)
	assert.Equal(t, "Pilot", eps[0].Title)
	assert.Equal(t, "http://host:8080/series/u/p/101.mp4", eps[0].StreamURL)
	assert.Equal(t, 2, eps[1].Season)
	assert.Equal(t, "http://host:8080/series/u/p/102.mkv", eps[1].StreamURL)
}

func TestParseEpisodeTree_flatArrayWithDirectSource(t *testing.T) {
	eps := parseTree(t, `{"episodes":[
		{"id":2001,"season":3,"episode_num":7,"title":"Direct","direct_source":"https://cdn.example.com/direct.m3u8"}
	]}`)
	require.Len(t, eps, 1)
	assert.Equal(t, "2001", eps[0].ID)
	assert.Equal(t, 3, eps[0].Season)
	assert.Equal(t, 7, eps[0].Number)
	assert.Equal(t, "https://cdn.example.com/direct.m3u8", eps[0].StreamURL)
}

func TestParseEpisodeTree_singleLeafObject(t *testing.T) {
	eps := parseTree(t, `{"episodes": {"stream_id": 9, "episode_num": "2"}}`)
	require.Len(t, eps, 1)
	assert.Equal(t, "9", eps[0].ID)
	assert.Equal(t, 0, eps[0].Season)
	assert.Equal(t, 2, eps[0].Number)
	// No title field: synthesized from season/episode.
	assert.Equal(t, "S0 E2", eps[0].Title)
	assert.Equal(t, "http://host:8080/series/u/p/9.mp4", eps[0].StreamURL)
}

func TestParseEpisodeTree_nestedMapsInheritSeasonHint(t *testing.T) {
	eps := parseTree(t, `{"episodes": {"4": {"a": {"id": "41"}, "b": [{"id": "42"}]}}}`)
	require.Len(t, eps, 2)
	for _, ep := range eps {
		assert.Equal(t, 4, ep.Season)
	}
}

func TestParseEpisodeTree_leafSeasonBeatsHint(t *testing.T) {
	eps := parseTree(t, `{"episodes": {"1": [{"id":"7","season":"5"}]}}`)
	require.Len(t, eps, 1)
	assert.Equal(t, 5, eps[0].Season)
}

func TestParseEpisodeTree_idFallbackChain(t *testing.T) {
	eps := parseTree(t, `{"episodes": [{"episode_id": "77", "title": "x"}, {"title": "y"}]}`)
	require.Len(t, eps, 2)
	assert.Equal(t, "77", eps[0].ID)
	// No id at all: series ID stands in.
	assert.Equal(t, "555", eps[1].ID)
}

func TestParseEpisodeTree_infoFields(t *testing.T) {
	eps := parseTree(t, `{"episodes": [{"id": "1", "info": {"plot": "story", "direct_source": "//cdn/x.ts"}}]}`)
	require.Len(t, eps, 1)
	assert.Equal(t, "story", eps[0].Overview)
	assert.Equal(t, "http://cdn/x.ts", eps[0].StreamURL)
}

func TestParseEpisodeTree_malformedNodes(t *testing.T) {
	assert.Empty(t, parseTree(t, `{"episodes": null}`))
	assert.Empty(t, parseTree(t, `{"episodes": "nope"}`))
	assert.Empty(t, parseTree(t, `{"episodes": 12}`))
	assert.Empty(t, parseTree(t, `{}`))
	// Junk elements inside an otherwise valid array are skipped.
	eps := parseTree(t, `{"episodes": [42, "x", {"id": "5"}]}`)
	require.Len(t, eps, 1)
	assert.Equal(t, "5", eps[0].ID)
}

func TestParseEpisodeTree_sortedBySeasonThenNumber(t *testing.T) {
	eps := parseTree(t, `{"episodes": [
		{"id":"c","season":2,"episode_num":1},
		{"id":"a","season":1,"episode_num":2},
		{"id":"b","season":1,"episode_num":1}
	]}`)
	require.Len(t, eps, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{eps[0].ID, eps[1].ID, eps[2].ID})
}
