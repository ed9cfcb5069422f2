// Package engine implements the rule-based medical chat engine: text
// normalization, intent classification, emergency short-circuiting, two-tier
// rule scoring, and stateful response composition over an immutable
// knowledge base.
package engine

import (
	"math/rand"
	"sync"
	"time"
)

// Source identifies which path produced a reply.
type Source string

const (
	SourceTemplate  Source = "template"
	SourceKnowledge Source = "knowledge"
	SourceEmergency Source = "emergency"
	SourceFallback  Source = "fallback"
)

// Reply is the engine's answer to one utterance. Text is the composed
// response; the remaining fields are metadata for callers that persist or
// route replies.
type Reply struct {
	Text     string `json:"text"`
	Source   Source `json:"source"`
	Intent   string `json:"intent,omitempty"`
	Category string `json:"category,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Options customizes an Engine. Zero values select the defaults: a fresh
// MemoryStore with DefaultHistoryLimit, a time-seeded random source, and the
// wall clock. Tests inject a seeded Rand to pin composed output exactly.
type Options struct {
	Store SessionStore
	Rand  *rand.Rand
	Now   func() time.Time
}

// Engine answers utterances synchronously. All matching is pure computation
// over the knowledge base; the injected store is the only mutable state.
type Engine struct {
	kb    *KnowledgeBase
	store SessionStore
	now   func() time.Time

	mu  sync.Mutex // guards rng; rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// New builds an engine over a loaded knowledge base.
func New(kb *KnowledgeBase, opts Options) *Engine {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore(DefaultHistoryLimit)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{kb: kb, store: store, rng: rng, now: now}
}

// Respond answers one utterance for a session. The raw input and the final
// response text are both appended to the session's history; an empty or
// unmatched utterance produces the fallback reply, never an error.
func (e *Engine) Respond(sessionID, utterance string) Reply {
	e.store.AppendTurn(sessionID, Turn{Role: RoleUser, Message: utterance, Timestamp: e.now()})
	reply := e.match(sessionID, utterance)
	e.store.AppendTurn(sessionID, Turn{Role: RoleBot, Message: reply.Text, Timestamp: e.now()})
	return reply
}

// History returns the session's ordered turn log. The engine never reads its
// own history; this is for callers that render or persist conversations.
func (e *Engine) History(sessionID string) []Turn {
	return e.store.History(sessionID)
}

// Context returns the session's last-turn summary, if any turn has matched.
func (e *Engine) Context(sessionID string) (SessionContext, bool) {
	return e.store.Context(sessionID)
}

func (e *Engine) match(sessionID, utterance string) Reply {
	normalized := Normalize(utterance)

	intent, hasIntent := e.kb.DetectIntent(normalized)
	if hasIntent {
		if isTemplateIntent(intent) {
			if template := e.pick(e.kb.templates(intent)); template != "" {
				e.store.PutContext(sessionID, SessionContext{
					LastSeverity: SeverityGreeting,
					LastIntent:   intent,
					Timestamp:    e.now(),
				})
				return Reply{Text: template, Source: SourceTemplate, Intent: intent, Severity: SeverityGreeting}
			}
		}
		// Help requests yield the topic menu only when the input carries no
		// keyword entities; "help with my headache" falls through to scoring.
		if isHelpIntent(intent) && len(e.kb.ExtractEntities(normalized)) == 0 {
			e.store.PutContext(sessionID, SessionContext{
				LastSeverity: SeverityInformation,
				LastIntent:   intent,
				Timestamp:    e.now(),
			})
			return Reply{Text: e.kb.helpSummary(), Source: SourceTemplate, Intent: intent, Severity: SeverityInformation}
		}
		if intent == intentExplain {
			normalized = e.kb.StripExplainPhrases(normalized)
		}
	}

	if e.kb.HasEmergency(normalized) {
		if rule, found := e.kb.emergencyRule(normalized); found {
			// Emergency responses go out verbatim: no prefixes, no follow-up,
			// no disclaimer, and no context write.
			return Reply{
				Text:     rule.Response,
				Source:   SourceEmergency,
				Intent:   intent,
				Category: rule.Category,
				Severity: rule.Severity,
			}
		}
	}

	lastCategory := ""
	if sc, found := e.store.Context(sessionID); found {
		lastCategory = sc.LastCategory
	}
	if match, found := e.kb.scoreRules(normalized, lastCategory); found {
		severity := match.rule.Severity
		if severity == "" {
			severity = SeverityInformation
		}
		text := e.composeKnowledge(match.rule)
		if !disclaimerExempt(severity) && e.kb.Disclaimer != "" {
			text += "\n\n" + e.kb.Disclaimer
		}
		e.store.PutContext(sessionID, SessionContext{
			LastCategory:   match.rule.Category,
			LastSeverity:   severity,
			FollowupTopics: match.rule.Followup,
			LastIntent:     intent,
			Timestamp:      e.now(),
		})
		return Reply{
			Text:     text,
			Source:   SourceKnowledge,
			Intent:   intent,
			Category: match.rule.Category,
			Severity: severity,
		}
	}

	return Reply{Text: e.composeFallback(), Source: SourceFallback, Intent: intent}
}

// chance reports a biased coin flip with probability p of true.
func (e *Engine) chance(p float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64() < p
}

// pick returns a random element of pool, or "" when the pool is empty.
func (e *Engine) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return pool[e.rng.Intn(len(pool))]
}
