package engine

import "strings"

// ruleMatch is a scored candidate. Ordinal is the rule's knowledge base
// declaration position and doubles as the tie-break key.
type ruleMatch struct {
	rule    *Rule
	ordinal int
	score   int
	matched []string
}

// HasEmergency reports whether any emergency keyword occurs as a substring of
// the normalized input.
func (kb *KnowledgeBase) HasEmergency(normalized string) bool {
	for _, keyword := range kb.EmergencyKeywords {
		if keyword != "" && strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// emergencyRule returns the first emergency-severity rule with a keyword
// present in the input. The caller returns its response verbatim, bypassing
// composition entirely.
func (kb *KnowledgeBase) emergencyRule(normalized string) (*Rule, bool) {
	for i := range kb.Rules {
		rule := &kb.Rules[i]
		if rule.Severity != SeverityEmergency {
			continue
		}
		for _, keyword := range rule.Keywords {
			if strings.Contains(normalized, keyword) {
				return rule, true
			}
		}
	}
	return nil, false
}

// scoreRules runs the primary substring pass and, when it yields nothing, the
// token-overlap fallback. lastCategory is the previous turn's category for
// the continuity bonus; empty means no prior context.
func (kb *KnowledgeBase) scoreRules(normalized, lastCategory string) (ruleMatch, bool) {
	best := ruleMatch{}
	found := false
	for i := range kb.Rules {
		rule := &kb.Rules[i]
		score := 0
		var matched []string
		for _, keyword := range rule.Keywords {
			if !strings.Contains(normalized, keyword) {
				continue
			}
			score += len(strings.Fields(keyword)) + 1
			matched = append(matched, keyword)
			if keyword == normalized {
				score += 5
			}
			if strings.HasPrefix(normalized, keyword) {
				score += 2
			}
		}
		if continuityBonus(lastCategory, rule.Category) {
			score++
		}
		if score <= 0 {
			continue
		}
		// Strictly-greater keeps the first declared rule on equal scores.
		if !found || score > best.score {
			best = ruleMatch{rule: rule, ordinal: i, score: score, matched: matched}
			found = true
		}
	}
	if found {
		return best, true
	}
	return kb.scoreByTokenOverlap(normalized)
}

// scoreByTokenOverlap scores each rule by the number of input tokens shared
// with its keyword and category token sets, using the precomputed inverted
// index. Rule ordinals stay the stable secondary sort key.
func (kb *KnowledgeBase) scoreByTokenOverlap(normalized string) (ruleMatch, bool) {
	inputTokens := Tokenize(normalized)
	if len(inputTokens) == 0 {
		return ruleMatch{}, false
	}
	overlap := make(map[int][]string)
	seen := make(map[string]struct{})
	for _, token := range inputTokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		for _, ordinal := range kb.tokenIndex[token] {
			overlap[ordinal] = append(overlap[ordinal], token)
		}
	}
	best := ruleMatch{}
	found := false
	for i := range kb.Rules {
		matched, ok := overlap[i]
		if !ok {
			continue
		}
		if !found || len(matched) > best.score {
			best = ruleMatch{rule: &kb.Rules[i], ordinal: i, score: len(matched), matched: matched}
			found = true
		}
	}
	return best, found
}

// continuityBonus reports whether the previous turn's category and the
// candidate rule's category share the same leading underscore segment, e.g.
// digestive_stomach continues into digestive_intestine.
func continuityBonus(lastCategory, category string) bool {
	if lastCategory == "" || category == "" {
		return false
	}
	return categoryHead(lastCategory) == categoryHead(category)
}

func categoryHead(category string) string {
	head, _, _ := strings.Cut(category, "_")
	return head
}
