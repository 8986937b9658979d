package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFAQCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
faq:
  - question: "aqi"
    answer: "AQI is a measure of air quality."
  - question: "help"
    answer: "Ask me anything."
suggestions:
  - "What is the current AQI?"
`), 0o644))

	corpus, err := LoadFAQCorpus(path)
	require.NoError(t, err)
	require.Len(t, corpus.Entries, 2)
	assert.Equal(t, []string{"What is the current AQI?"}, corpus.Suggestions)

	answer, ok := corpus.Answer("aqi")
	require.True(t, ok)
	assert.Equal(t, "AQI is a measure of air quality.", answer)

	_, ok = corpus.Answer("missing")
	assert.False(t, ok)
}

func TestLoadFAQCorpusErrors(t *testing.T) {
	_, err := LoadFAQCorpus(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("suggestions: []\n"), 0o644))
	_, err = LoadFAQCorpus(empty)
	assert.ErrorContains(t, err, "no entries")
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "whats the pm2.5 level", cleanText("What's the PM2.5 level?"))
	assert.Equal(t, "co2", cleanText("  CO2!  "))
}
