package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Embedded(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"demo", "load", "small"}, c.Names())
	small, err := c.Preset("small")
	require.NoError(t, err)
	assert.Equal(t, 8, small.Users)
	assert.Equal(t, 12, small.Contents)
	assert.NotEmpty(t, c.Categories)
	assert.NotEmpty(t, c.Tags)

	_, err = c.Preset("huge")
	assert.ErrorContains(t, err, "unknown preset")
}

func TestParseCatalog_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
	}{
		{"not yaml", "presets: ["},
		{"no presets", "tags: [a]"},
		{"zero users", "presets:\n  x: {users: 0, contents: 1}"},
		{"ratio out of range", "presets:\n  x: {users: 1, like_ratio: 1.5}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}
