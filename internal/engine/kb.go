package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	SeverityEmergency   = "emergency"
	SeverityInformation = "information"
	SeverityPrevention  = "prevention"
	SeverityGreeting    = "greeting"
)

// Conversational phrase pool names used by the composer.
const (
	phraseUnderstanding = "understanding"
	phraseFollowup      = "followup"
	phraseUncertainty   = "uncertainty"
)

// Rule is a keyword-triggered response unit. Declaration order inside the
// knowledge base is significant: it is the deterministic tie-break when two
// rules score equally.
type Rule struct {
	Keywords          []string `json:"keywords"`
	Category          string   `json:"category"`
	Severity          string   `json:"severity"`
	Response          string   `json:"response"`
	NaturalVariations []string `json:"natural_variations,omitempty"`
	Followup          []string `json:"followup,omitempty"`
}

// Intent is a coarse conversational act detected by substring trigger
// phrases. Intents are an ordered array rather than a map so that the
// classifier can honor declaration order.
type Intent struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// KnowledgeBase is the static configuration driving the engine. It is loaded
// once at startup and never mutated afterwards.
type KnowledgeBase struct {
	Rules             []Rule              `json:"rules"`
	Intents           []Intent            `json:"intents"`
	EmergencyKeywords []string            `json:"emergency_keywords"`
	ResponseTemplates map[string][]string `json:"response_templates"`
	Conversational    map[string][]string `json:"conversational_responses"`
	Disclaimer        string              `json:"disclaimer"`

	// tokenIndex maps a normalized token to the ordinals of rules whose
	// keywords or category contain it, in declaration order. Built once at
	// load time and used by the token-overlap fallback pass.
	tokenIndex map[string][]int
}

// LoadKnowledgeBase reads and parses the knowledge base JSON at path. Any
// failure here is a startup failure: the engine cannot be constructed
// without a valid knowledge base.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return ParseKnowledgeBase(data)
}

// ParseKnowledgeBase parses and validates raw knowledge base JSON.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{}
	if err := json.Unmarshal(data, kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if err := kb.validate(); err != nil {
		return nil, fmt.Errorf("invalid knowledge base: %w", err)
	}
	kb.buildTokenIndex()
	return kb, nil
}

func (kb *KnowledgeBase) validate() error {
	if len(kb.Rules) == 0 {
		return fmt.Errorf("no rules defined")
	}
	for i, rule := range kb.Rules {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("rule %d (%q) has no keywords", i, rule.Category)
		}
		if strings.TrimSpace(rule.Response) == "" {
			return fmt.Errorf("rule %d (%q) has no response", i, rule.Category)
		}
	}
	for i, intent := range kb.Intents {
		if strings.TrimSpace(intent.Name) == "" {
			return fmt.Errorf("intent %d has no name", i)
		}
	}
	return nil
}

func (kb *KnowledgeBase) buildTokenIndex() {
	kb.tokenIndex = make(map[string][]int)
	for ordinal, rule := range kb.Rules {
		seen := make(map[string]struct{})
		for _, keyword := range rule.Keywords {
			for _, token := range Tokenize(keyword) {
				seen[token] = struct{}{}
			}
		}
		for _, token := range Tokenize(strings.ReplaceAll(rule.Category, "_", " ")) {
			seen[token] = struct{}{}
		}
		for token := range seen {
			kb.tokenIndex[token] = append(kb.tokenIndex[token], ordinal)
		}
	}
}

// templates returns the response template pool for an intent, empty when the
// intent has no configured templates.
func (kb *KnowledgeBase) templates(intent string) []string {
	if kb.ResponseTemplates == nil {
		return nil
	}
	return kb.ResponseTemplates[intent]
}

// phrases returns a conversational phrase pool, empty when unconfigured.
func (kb *KnowledgeBase) phrases(pool string) []string {
	if kb.Conversational == nil {
		return nil
	}
	return kb.Conversational[pool]
}

func (kb *KnowledgeBase) intentPatterns(name string) []string {
	for _, intent := range kb.Intents {
		if intent.Name == name {
			return intent.Patterns
		}
	}
	return nil
}
