package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryMemberships(t *testing.T) {
	cases := []struct {
		name    string
		primary string
		ids     []string
		want    []string
	}{
		{"primary only", "3", nil, []string{"3"}},
		{"union keeps order and dedups", "3", []string{"7", "3"}, []string{"3", "7"}},
		{"sentinel primary ignored when ids present", "0", []string{"7"}, []string{"7"}},
		{"sentinel -1 ignored when ids present", "-1", []string{"7", "9"}, []string{"7", "9"}},
		{"sentinel primary alone falls back to itself", "0", nil, []string{"0"}},
		{"empty everything falls back to zero bucket", "", nil, []string{"0"}},
		{"ids only", "", []string{"5", "5", "6"}, []string{"5", "6"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, categoryMemberships(c.primary, c.ids))
		})
	}
}
