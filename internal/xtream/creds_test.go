package xtream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://host:8080", NormalizeBaseURL(" http://host:8080/ "))
	assert.Equal(t, "http://host", NormalizeBaseURL("http://host//"))
	assert.Equal(t, "", NormalizeBaseURL("  /  "))
}

func TestResolvePlaybackBase(t *testing.T) {
	cases := []struct {
		name string
		auth AuthResponse
		want string
	}{
		{
			name: "no server info falls back to configured base",
			auth: AuthResponse{},
			want: "http://configured:8080",
		},
		{
			name: "http with explicit port",
			auth: AuthResponse{ServerURL: "stream.example.com", Port: "2095"},
			want: "http://stream.example.com:2095",
		},
		{
			name: "https prefers https port",
			auth: AuthResponse{ServerURL: "stream.example.com", Port: "80", HTTPSPort: "8443", ServerProtocol: "https"},
			want: "https://stream.example.com:8443",
		},
		{
			name: "default https port elided",
			auth: AuthResponse{ServerURL: "stream.example.com", HTTPSPort: "443", ServerProtocol: "https"},
			want: "https://stream.example.com",
		},
		{
			name: "default http port elided",
			auth: AuthResponse{ServerURL: "stream.example.com", Port: "80"},
			want: "http://stream.example.com",
		},
		{
			name: "http falls back to https port when port absent",
			auth: AuthResponse{ServerURL: "stream.example.com", HTTPSPort: "8443"},
			want: "http://stream.example.com:8443",
		},
		{
			name: "full URL in server_info keeps host only",
			auth: AuthResponse{ServerURL: "https://stream.example.com/", Port: "8080"},
			want: "http://stream.example.com:8080",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ResolvePlaybackBase(c.auth, "http://configured:8080/"))
		})
	}
}

func TestNormalizeContainerExt(t *testing.T) {
	assert.Equal(t, "mp4", NormalizeContainerExt(".MP4 "))
	assert.Equal(t, "", NormalizeContainerExt("null"))
	assert.Equal(t, "", NormalizeContainerExt("0"))
	assert.Equal(t, "", NormalizeContainerExt(""))
	assert.Equal(t, "mkv", NormalizeContainerExt("mkv"))
}

func TestBuildPlaybackURL(t *testing.T) {
	creds := Credentials{BaseURL: "http://host:8080", Username: "u ser", Password: "p@ss"}

	t.Run("canonical composition", func(t *testing.T) {
		got := BuildPlaybackURL(creds, KindLive, "42", "", "")
		assert.Equal(t, "http://host:8080/live/u%20ser/p@ss/42.m3u8", got)
	})

	t.Run("movie with container", func(t *testing.T) {
		got := BuildPlaybackURL(creds, KindMovie, "7", "MKV", "")
		assert.Equal(t, "http://host:8080/movie/u%20ser/p@ss/7.mkv", got)
	})

	t.Run("sentinel extension falls back to m3u8", func(t *testing.T) {
		got := BuildPlaybackURL(creds, KindSeries, "9", "null", "")
		assert.Equal(t, "http://host:8080/series/u%20ser/p@ss/9.m3u8", got)
	})

	t.Run("direct source bypasses composition", func(t *testing.T) {
		got := BuildPlaybackURL(creds, KindMovie, "7", "mp4", "https://cdn.example.com/direct.m3u8")
		assert.Equal(t, "https://cdn.example.com/direct.m3u8", got)
	})

	t.Run("scheme-relative direct source inherits base scheme", func(t *testing.T) {
		got := BuildPlaybackURL(creds, KindMovie, "7", "", "//cdn.example.com/a.ts")
		assert.Equal(t, "http://cdn.example.com/a.ts", got)

		httpsCreds := creds
		httpsCreds.BaseURL = "https://host"
		got = BuildPlaybackURL(httpsCreds, KindMovie, "7", "", "//cdn.example.com/a.ts")
		assert.Equal(t, "https://cdn.example.com/a.ts", got)
	})
}

func TestPreferredContainer(t *testing.T) {
	assert.Equal(t, "m3u8", PreferredContainer([]string{"ts", "m3u8"}, KindLive))
	assert.Equal(t, "ts", PreferredContainer([]string{"ts", "rtmp"}, KindLive))
	assert.Equal(t, "mp4", PreferredContainer([]string{"mkv", "mp4"}, KindMovie))
	assert.Equal(t, "rtmp", PreferredContainer([]string{"rtmp"}, KindMovie))
	assert.Equal(t, "", PreferredContainer(nil, KindMovie))
	assert.Equal(t, "", PreferredContainer([]string{"", "null"}, KindLive))
}

func TestCredentialsValidate(t *testing.T) {
	assert.ErrorIs(t, Credentials{}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Credentials{BaseURL: "not a url", Username: "u", Password: "p"}.Validate(), ErrInvalidInput)
	assert.NoError(t, Credentials{BaseURL: "http://host", Username: "u", Password: "p"}.Validate())
}
