package engine

import (
	"sort"
	"strings"
)

// Intent names with dedicated handling downstream.
const (
	intentGreeting     = "greeting"
	intentFarewell     = "farewell"
	intentThanks       = "thanks"
	intentHowAreYou    = "how_are_you"
	intentHelp         = "help"
	intentWhatCanYouDo = "what_can_you_do"
	intentExplain      = "explain"
)

// DetectIntent returns the first intent, in knowledge base declaration
// order, with a trigger phrase occurring as a substring of the normalized
// input.
func (kb *KnowledgeBase) DetectIntent(normalized string) (string, bool) {
	for _, intent := range kb.Intents {
		for _, pattern := range intent.Patterns {
			if pattern != "" && strings.Contains(normalized, pattern) {
				return intent.Name, true
			}
		}
	}
	return "", false
}

// isTemplateIntent reports whether an intent is answered verbatim from the
// response template pool.
func isTemplateIntent(name string) bool {
	switch name {
	case intentGreeting, intentFarewell, intentThanks, intentHowAreYou:
		return true
	}
	return false
}

func isHelpIntent(name string) bool {
	return name == intentHelp || name == intentWhatCanYouDo
}

// StripExplainPhrases removes the configured explain trigger phrases from the
// normalized input so that "please explain diabetes" scores as "diabetes".
func (kb *KnowledgeBase) StripExplainPhrases(normalized string) string {
	cleaned := normalized
	for _, phrase := range kb.intentPatterns(intentExplain) {
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, phrase, ""))
	}
	return whitespaceRe.ReplaceAllString(cleaned, " ")
}

// ExtractEntities collects every rule keyword occurring as a substring of the
// normalized input. Used to decide whether a help request should fall through
// to normal scoring instead.
func (kb *KnowledgeBase) ExtractEntities(normalized string) []string {
	var entities []string
	seen := make(map[string]struct{})
	for _, rule := range kb.Rules {
		for _, keyword := range rule.Keywords {
			if _, dup := seen[keyword]; dup {
				continue
			}
			if strings.Contains(normalized, keyword) {
				seen[keyword] = struct{}{}
				entities = append(entities, keyword)
			}
		}
	}
	return entities
}

// helpSummary lists the available rule categories as a readable topic menu.
func (kb *KnowledgeBase) helpSummary() string {
	seen := make(map[string]struct{})
	topics := make([]string, 0, len(kb.Rules))
	for _, rule := range kb.Rules {
		topic := strings.ReplaceAll(rule.Category, "_", " ")
		if topic == "" {
			continue
		}
		if _, dup := seen[topic]; dup {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	if len(topics) > 10 {
		topics = topics[:10]
	}
	return "I can help with anatomy, diseases, symptoms, nutrition, medications, prevention, and biology basics. " +
		"Some topics include: " + strings.Join(topics, ", ") + ". " +
		"Ask in your own words, like 'Why do I feel dizzy?' or 'Explain the immune system.'"
}
