package engine

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctuationRe = regexp.MustCompile(`[^\w\s?]`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9]`)
)

// tokenSuffixes are stripped once per token, first match wins.
var tokenSuffixes = []string{"ing", "ed", "es", "s"}

var stopwords = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {}, "about": {},
	"please": {}, "tell": {}, "me": {}, "what": {}, "why": {}, "how": {},
	"does": {}, "do": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"explain": {}, "describe": {}, "give": {}, "learn": {}, "know": {},
	"information": {}, "detail": {}, "details": {}, "my": {}, "your": {},
}

var synonyms = map[string]string{
	"tummy":         "stomach",
	"belly":         "stomach",
	"pee":           "urine",
	"peeing":        "urine",
	"urination":     "urine",
	"poop":          "bowel",
	"pooping":       "bowel",
	"heartburn":     "reflux",
	"flu":           "influenza",
	"sugar":         "glucose",
	"bp":            "pressure",
	"bloodpressure": "pressure",
	"covid19":       "covid",
}

// Normalize lowercases the input, strips every character except word
// characters, whitespace, and question marks, then collapses whitespace runs
// and trims. Question marks survive for intent detection. Punctuation is
// removed before collapsing so a dropped punctuation token cannot leave a
// double space behind; Normalize is idempotent.
func Normalize(input string) string {
	cleaned := punctuationRe.ReplaceAllString(strings.ToLower(input), "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// NormalizeToken strips non-alphanumerics and removes a single inflection
// suffix when the stripped token would remain longer than three characters.
func NormalizeToken(token string) string {
	token = nonAlnumRe.ReplaceAllString(strings.ToLower(token), "")
	for _, suffix := range tokenSuffixes {
		if strings.HasSuffix(token, suffix) && len(token)-len(suffix) > 3 {
			token = token[:len(token)-len(suffix)]
			break
		}
	}
	return token
}

// Tokenize splits text on whitespace, normalizes each token, drops stopwords
// and empty tokens, and maps the survivors through the synonym table. The
// result feeds the token-overlap fallback scorer.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, raw := range fields {
		token := NormalizeToken(raw)
		if token == "" {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		if mapped, ok := synonyms[token]; ok {
			token = mapped
		}
		tokens = append(tokens, token)
	}
	return tokens
}
