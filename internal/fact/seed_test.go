package fact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	require.Len(t, seeds, 3)

	react := seeds[0]
	assert.Equal(t, "1", react.ID)
	assert.Equal(t, "technology", react.Category)
	assert.Equal(t, int64(24), react.VotesInteresting)
	assert.Equal(t, int64(9), react.VotesMindblowing)
	assert.Equal(t, int64(4), react.VotesFalse)
	assert.Equal(t, 2021, react.CreatedIn)

	for _, s := range seeds {
		_, err := Validate(Candidate{Text: s.Text, Source: s.Source, Category: s.Category})
		assert.NoError(t, err, s.ID)
	}
}

func TestDecodeSeeds_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeSeeds(strings.NewReader("- id: \"9\"\n  txt: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse seeds")
}

func TestDecodeSeeds_RejectsDuplicateIDs(t *testing.T) {
	src := "- id: \"1\"\n  text: a\n- id: \"1\"\n  text: b\n"
	_, err := DecodeSeeds(strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestDecodeSeeds_RequiresID(t *testing.T) {
	_, err := DecodeSeeds(strings.NewReader("- text: orphan\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")
}

func TestDecodeSeeds_Empty(t *testing.T) {
	facts, err := DecodeSeeds(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: a\n  text: hello\n  votesFalse: 2\n"), 0o644))

	facts, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, int64(2), facts[0].VotesFalse)

	_, err = LoadSeeds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
