package engine

import (
	"strings"
	"testing"
)

func TestLoadKnowledgeBaseFile(t *testing.T) {
	kb, err := LoadKnowledgeBase("testdata/knowledge_base.json")
	if err != nil {
		t.Fatalf("expected load to succeed: %v", err)
	}
	if len(kb.Rules) == 0 {
		t.Fatalf("expected rules to be loaded")
	}
	if len(kb.Intents) == 0 {
		t.Fatalf("expected intents to be loaded")
	}
	if kb.Disclaimer == "" {
		t.Fatalf("expected a disclaimer")
	}
	if len(kb.tokenIndex) == 0 {
		t.Fatalf("expected token index to be built at load time")
	}
}

func TestLoadKnowledgeBaseMissingFile(t *testing.T) {
	if _, err := LoadKnowledgeBase("testdata/does_not_exist.json"); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestParseKnowledgeBaseMalformed(t *testing.T) {
	if _, err := ParseKnowledgeBase([]byte("{not json")); err == nil {
		t.Fatalf("expected malformed JSON to fail")
	}
}

func TestParseKnowledgeBaseValidation(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			name: "no rules",
			json: `{"rules": []}`,
			want: "no rules",
		},
		{
			name: "rule without keywords",
			json: `{"rules": [{"category": "x", "response": "y"}]}`,
			want: "no keywords",
		},
		{
			name: "rule without response",
			json: `{"rules": [{"category": "x", "keywords": ["k"]}]}`,
			want: "no response",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseKnowledgeBase([]byte(tc.json))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestTokenIndexPreservesDeclarationOrder(t *testing.T) {
	kb := newTestKB(t)
	ordinals := kb.tokenIndex["cramp"]
	if len(ordinals) != 2 {
		t.Fatalf("expected cramp to index two rules, got %v", ordinals)
	}
	if ordinals[0] >= ordinals[1] {
		t.Fatalf("expected ascending declaration order, got %v", ordinals)
	}
}

func TestOptionalPoolsAreAbsentTolerant(t *testing.T) {
	kb := &KnowledgeBase{Rules: []Rule{{Keywords: []string{"k"}, Category: "c", Response: "r"}}}
	if err := kb.validate(); err != nil {
		t.Fatalf("minimal knowledge base should validate: %v", err)
	}
	if got := kb.templates("greeting"); got != nil {
		t.Fatalf("expected nil template pool, got %v", got)
	}
	if got := kb.phrases(phraseUncertainty); got != nil {
		t.Fatalf("expected nil phrase pool, got %v", got)
	}
}
