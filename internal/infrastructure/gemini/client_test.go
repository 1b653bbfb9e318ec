package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompatibility(t *testing.T) {
	c, err := ParseCompatibility("```json\n{\"score\": 81.5, \"explanations\": [\"both cook\", \"quiet evenings\", \"same district\", \"extra\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, 81.5, c.Score)
	assert.Equal(t, []string{"both cook", "quiet evenings", "same district"}, c.Explanations)

	_, err = ParseCompatibility(`{"score": 140}`)
	assert.Error(t, err)

	_, err = ParseCompatibility("they seem nice")
	assert.Error(t, err)
}
