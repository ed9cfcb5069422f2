package engine

import "strings"

const (
	// Chance of prepending an "understanding" acknowledgment phrase.
	understandingChance = 0.4
	// Chance of prepending one of the rule's natural variations.
	variationChance = 0.3
	// Follow-up suggestions are capped to keep responses readable.
	maxFollowupTopics = 3
)

const fallbackHint = "I can answer questions on symptoms, anatomy, conditions, nutrition, " +
	"medications, prevention, and wellness. Try a full sentence like: " +
	"'What causes chest pain?' or 'Explain the immune system.'"

const genericFallback = "I don't have specific information about that yet. " +
	"For accurate medical advice, please consult a qualified healthcare professional. "

// composeKnowledge turns a matched rule's response into a conversational
// reply: an optional acknowledgment prefix, an optional natural-variation
// intro, and a follow-up suggestion when the rule carries topics.
func (e *Engine) composeKnowledge(rule *Rule) string {
	response := rule.Response

	if e.chance(understandingChance) {
		if prefix := e.pick(e.kb.phrases(phraseUnderstanding)); prefix != "" {
			response = prefix + " " + response
		}
	}
	if len(rule.NaturalVariations) > 0 && e.chance(variationChance) {
		if intro := e.pick(rule.NaturalVariations); intro != "" {
			response = intro + " " + response
		}
	}
	if suffix := e.followupSuffix(rule); suffix != "" {
		response += suffix
	}
	return response
}

func (e *Engine) followupSuffix(rule *Rule) string {
	if len(rule.Followup) == 0 {
		return ""
	}
	phrase := e.pick(e.kb.phrases(phraseFollowup))
	if phrase == "" {
		return ""
	}
	topics := rule.Followup
	if len(topics) > maxFollowupTopics {
		topics = topics[:maxFollowupTopics]
	}
	return "\n\n" + phrase + " " + strings.Join(topics, ", ") + "?"
}

// composeFallback builds the no-match reply: a random uncertainty phrase plus
// a hint describing what the bot can do, or a fixed generic sentence when no
// uncertainty phrases are configured.
func (e *Engine) composeFallback() string {
	if phrase := e.pick(e.kb.phrases(phraseUncertainty)); phrase != "" {
		return phrase + " " + fallbackHint
	}
	return genericFallback + fallbackHint
}

// disclaimerExempt reports whether a severity skips the medical disclaimer.
func disclaimerExempt(severity string) bool {
	switch severity {
	case SeverityGreeting, SeverityInformation, SeverityPrevention:
		return true
	}
	return false
}
