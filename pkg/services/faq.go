package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FAQEntry is one built-in question/answer pair.
type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// FAQCorpus is the chatbot's built-in knowledge: keyed answers plus the
// suggestion list shown to users.
type FAQCorpus struct {
	Entries     []FAQEntry `yaml:"faq"`
	Suggestions []string   `yaml:"suggestions"`
}

// LoadFAQCorpus reads the FAQ corpus from a YAML file.
func LoadFAQCorpus(path string) (*FAQCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read FAQ corpus: %w", err)
	}

	var corpus FAQCorpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse FAQ corpus: %w", err)
	}
	if len(corpus.Entries) == 0 {
		return nil, fmt.Errorf("FAQ corpus %s has no entries", path)
	}

	return &corpus, nil
}

// Answer looks up the keyed answer for a question slug.
func (c *FAQCorpus) Answer(key string) (string, bool) {
	for _, e := range c.Entries {
		if e.Question == key {
			return e.Answer, true
		}
	}
	return "", false
}

var nonWordRE = regexp.MustCompile(`[^a-zA-Z0-9_\s\.]`)

// cleanText strips punctuation except decimal points and lowercases,
// so "What's the PM2.5?" matches "whats the pm2.5".
func cleanText(text string) string {
	cleaned := nonWordRE.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.ToLower(cleaned))
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// wordOverlapScore is the share of target words also present in the query.
func wordOverlapScore(queryWords map[string]bool, target string) float64 {
	targetWords := strings.Fields(target)
	if len(targetWords) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(targetWords))
	common := 0
	for _, w := range targetWords {
		if seen[w] {
			continue
		}
		seen[w] = true
		if queryWords[w] {
			common++
		}
	}
	return float64(common) / float64(len(seen))
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		words[w] = true
	}
	return words
}
