package safeurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHTTPOrHTTPS(t *testing.T) {
	tests := []struct {
		url   string
		allow bool
	}{
		{"http://panel.example.com:8080", true},
		{"https://panel.example.com/path", true},
		{"HTTP://x", true},
		{"file:///etc/passwd", false},
		{"ftp://panel.example.com", false},
		{"http://", false},
		{"panel.example.com", false},
		{"", false},
		{"javascript:alert(1)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allow, IsHTTPOrHTTPS(tt.url), "url %q", tt.url)
	}
}

func TestRedact(t *testing.T) {
	in := "http://panel.example.com/player_api.php?username=bob&password=hunter2&action=get_live_streams"
	out := Redact(in)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "bob")
	assert.Contains(t, out, "action=get_live_streams")

	// no credentials, nothing to mask
	assert.Equal(t, "http://panel.example.com/xmltv.php?type=full",
		Redact("http://panel.example.com/xmltv.php?type=full"))
}
