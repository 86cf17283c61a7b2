package compress

import (
	"regexp"
	"strings"
)

var (
	capitalizedPhraseRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	emailRe             = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlRe               = regexp.MustCompile(`https?://[^\s]+`)
	singularPronounRe   = regexp.MustCompile(`(?i)\b(he|she|him|her|his|hers)\b`)
	sentenceBoundaryRe  = regexp.MustCompile(`[.!?]\s+`)
)

// ExtractEntities finds capitalized phrases, emails, and URLs (spec §4.6
// "named-entity extraction"), deduplicated. URLs come first, then emails,
// then capitalized phrases, each group in order of appearance.
func ExtractEntities(text string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(matches []string) {
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	add(urlRe.FindAllString(text, -1))
	add(emailRe.FindAllString(text, -1))
	add(capitalizedPhraseRe.FindAllString(text, -1))
	return out
}

// ResolvePronounReferents maps each singular pronoun occurrence to the
// nearest preceding extracted personal name in reading order (spec §4.6
// "pronoun-referent heuristic"). The referent candidate of a capitalized
// phrase is its first word (a coarse approximation); capitalized pronouns
// such as a sentence-initial "She" are not candidates.
func ResolvePronounReferents(text string) map[int]string {
	sentences := sentenceBoundaryRe.Split(text, -1)
	referents := map[int]string{}

	lastName := ""
	offset := 0
	for _, sent := range sentences {
		names := capitalizedPhraseRe.FindAllStringIndex(sent, -1)
		next := 0
		// takeNamesBefore folds every phrase starting before pos into
		// lastName, using the phrase's first word: a personal name is
		// usually addressed by first name alone.
		takeNamesBefore := func(pos int) {
			for ; next < len(names) && names[next][0] < pos; next++ {
				first := strings.Fields(sent[names[next][0]:names[next][1]])[0]
				if !singularPronounRe.MatchString(first) {
					lastName = first
				}
			}
		}
		for _, loc := range singularPronounRe.FindAllStringIndex(sent, -1) {
			takeNamesBefore(loc[0])
			if lastName != "" {
				referents[offset+loc[0]] = lastName
			}
		}
		takeNamesBefore(len(sent))
		offset += len(sent) + 1
	}
	return referents
}
