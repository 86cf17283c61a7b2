package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeReturnsUnchangedWhenUnderBudget(t *testing.T) {
	text := "Short text."
	assert.Equal(t, text, Summarize(text, Options{CharBudget: 1000}))
}

func TestSummarizeTruncatesLongText(t *testing.T) {
	text := strings.Repeat("The rocket launched successfully today. ", 20) +
		"Maria Alvarez led the engineering team. The mission was a historic milestone for the agency."
	out := Summarize(text, Options{CharBudget: 120, PreserveEntities: true})
	assert.LessOrEqual(t, len(out), 130)
	assert.NotEqual(t, text, out)
}

func TestExtractEntitiesFindsEmailsURLsAndNames(t *testing.T) {
	text := "Please reach Maria Alvarez at maria@example.com or visit https://example.com for details."
	entities := ExtractEntities(text)
	assert.Contains(t, entities, "maria@example.com")
	assert.Contains(t, entities, "https://example.com")
	assert.Contains(t, entities, "Maria Alvarez")
}

func TestResolvePronounReferentsMapsToNearestName(t *testing.T) {
	text := "Maria Alvarez led the mission. She gave a speech afterward."
	referents := ResolvePronounReferents(text)
	assert.NotEmpty(t, referents)
	for _, name := range referents {
		assert.Equal(t, "Maria", name)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	assert.Equal(t, "", Summarize("", Options{CharBudget: 100}))
}
