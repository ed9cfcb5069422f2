package server

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

var errTestAIDown = errors.New("ai unavailable")

func TestChatSessionLifecycle(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/chat/sessions", token, map[string]any{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session failed: %d %s", rec.Code, rec.Body.String())
	}
	sessionID, _ := decodeJSONMap(t, rec)["id"].(string)
	if sessionID == "" {
		t.Fatalf("expected session id")
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/chat/sessions/"+sessionID+"/messages", token, map[string]any{
		"message": "I have a headache",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("post message failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["source"] != "knowledge" {
		t.Fatalf("expected knowledge source, got %+v", body)
	}
	if body["category"] != "pain_head" {
		t.Fatalf("expected pain_head category, got %+v", body)
	}
	reply, _ := body["reply"].(string)
	if !strings.Contains(reply, "tension or dehydration") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "educational information") {
		t.Fatalf("expected disclaimer appended, got %q", reply)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/chat/sessions/"+sessionID+"/messages", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list messages failed: %d %s", rec.Code, rec.Body.String())
	}
	messages, _ := decodeJSONMap(t, rec)["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected user and bot rows, got %d", len(messages))
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "I have a headache" {
		t.Fatalf("unexpected first message: %+v", first)
	}

	// First message renames the session.
	rec = performRequest(t, router, http.MethodGet, "/api/v1/chat/sessions", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sessions failed: %d %s", rec.Code, rec.Body.String())
	}
	sessions, _ := decodeJSONMap(t, rec)["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	session, _ := sessions[0].(map[string]any)
	if session["title"] != "I have a headache" {
		t.Fatalf("expected derived title, got %+v", session)
	}
	if count, _ := session["message_count"].(float64); int(count) != 2 {
		t.Fatalf("expected message_count 2, got %v", session["message_count"])
	}
}

func TestChatSessionAccessIsScopedToOwner(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	owner := seedUser(t, "", "")
	intruder := seedUser(t, "", "")
	sessionID := seedChatSession(t, owner, "")

	rec := performRequest(t, router, http.MethodGet, "/api/v1/chat/sessions/"+sessionID+"/messages", signToken(t, intruder), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign session, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/chat/sessions/"+testID()+"/messages", signToken(t, owner), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestChatEmergencyMessageBypassesComposer(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)
	sessionID := seedChatSession(t, userID, "")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/chat/sessions/"+sessionID+"/messages", token, map[string]any{
		"message": "I have severe chest pain",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("post message failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["source"] != "emergency" {
		t.Fatalf("expected emergency source, got %+v", body)
	}
	if body["reply"] != "Call your local emergency number immediately." {
		t.Fatalf("expected verbatim emergency response, got %q", body["reply"])
	}
}

func TestChatQueryUsesAIFallbackWhenConfigured(t *testing.T) {
	resetDatabase(t)
	app := newTestApp(t)
	mock := &MockAIClient{Answer: "AI answer about rare topic"}
	router := app.WithAIClient(mock).Router()

	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/chat/query", token, map[string]any{
		"message": "zzz qqq xxx",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat query failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["source"] != "ai" {
		t.Fatalf("expected ai source, got %+v", body)
	}
	if body["reply"] != "AI answer about rare topic" {
		t.Fatalf("unexpected reply: %q", body["reply"])
	}
	if mock.Calls != 1 {
		t.Fatalf("expected 1 AI call, got %d", mock.Calls)
	}

	// Matched answers must not consult the AI.
	rec = performRequest(t, router, http.MethodPost, "/api/v1/chat/query", token, map[string]any{
		"message": "tell me about hygiene",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat query failed: %d %s", rec.Code, rec.Body.String())
	}
	if body := decodeJSONMap(t, rec); body["source"] != "knowledge" {
		t.Fatalf("expected knowledge source, got %+v", body)
	}
	if mock.Calls != 1 {
		t.Fatalf("expected no further AI calls, got %d", mock.Calls)
	}
}

func TestChatQueryDegradesToRuleFallbackOnAIError(t *testing.T) {
	resetDatabase(t)
	app := newTestApp(t)
	mock := &MockAIClient{Err: errTestAIDown}
	router := app.WithAIClient(mock).Router()

	userID := seedUser(t, "", "")
	rec := performRequest(t, router, http.MethodPost, "/api/v1/chat/query", signToken(t, userID), map[string]any{
		"message": "zzz qqq xxx",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat query failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	if body["source"] != "fallback" {
		t.Fatalf("expected rule fallback when AI errors, got %+v", body)
	}
	reply, _ := body["reply"].(string)
	if reply == "" {
		t.Fatalf("expected fallback text")
	}
}
