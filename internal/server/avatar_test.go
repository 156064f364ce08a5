package server

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_avatarColor(t *testing.T) {
	colorRe := regexp.MustCompile(`^#[0-9a-f]{6}$`)

	t.Run("deterministic", func(t *testing.T) {
		first := avatarColor("alice")
		second := avatarColor("alice")
		assert.Equal(t, first, second, "expected the same username to map to the same color")
	})

	t.Run("well-formed hex color", func(t *testing.T) {
		for _, name := range []string{"alice", "bob", "a", "Ana Maria", "用户"} {
			color := avatarColor(name)
			assert.Regexpf(t, colorRe, color, "expected a #rrggbb color for %q, got %q", name, color)
		}
	})

	t.Run("different usernames get different colors", func(t *testing.T) {
		assert.NotEqual(t, avatarColor("alice"), avatarColor("bob"),
			"expected distinct colors for distinct usernames")
	})
}
