package server

import (
	"net/http"
	"testing"
	"time"
)

func TestTrackerEntryLifecycle(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/tracker/entries", token, map[string]any{
		"metric_type": "weight",
		"value":       72.5,
		"unit":        "kg",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add entry failed: %d %s", rec.Code, rec.Body.String())
	}
	entryID, _ := decodeJSONMap(t, rec)["id"].(string)

	rec = performRequest(t, router, http.MethodPost, "/api/v1/tracker/entries", token, map[string]any{
		"metric_type": "levitation",
		"value":       1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown metric, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/tracker/entries?metric_type=weight", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list entries failed: %d %s", rec.Code, rec.Body.String())
	}
	entries, _ := decodeJSONMap(t, rec)["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 weight entry, got %d", len(entries))
	}

	rec = performRequest(t, router, http.MethodDelete, "/api/v1/tracker/entries/"+entryID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete entry failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = performRequest(t, router, http.MethodDelete, "/api/v1/tracker/entries/"+entryID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for already deleted entry, got %d", rec.Code)
	}
}

func TestTrackerSummaryAndChart(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	now := time.Now().UTC()
	seedTrackerEntry(t, userID, "heart_rate", 60, now.AddDate(0, 0, -1))
	seedTrackerEntry(t, userID, "heart_rate", 80, now)
	seedTrackerEntry(t, userID, "weight", 72, now)
	// Outside the window, must not count.
	seedTrackerEntry(t, userID, "heart_rate", 200, now.AddDate(0, 0, -40))

	rec := performRequest(t, router, http.MethodGet, "/api/v1/tracker/summary?days=30", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary failed: %d %s", rec.Code, rec.Body.String())
	}
	metrics, _ := decodeJSONMap(t, rec)["metrics"].([]any)
	if len(metrics) != 2 {
		t.Fatalf("expected 2 metric groups, got %d", len(metrics))
	}
	heartRate, _ := metrics[0].(map[string]any)
	if heartRate["metric_type"] != "heart_rate" {
		t.Fatalf("expected heart_rate first, got %+v", heartRate)
	}
	if avg, _ := heartRate["average"].(float64); avg != 70 {
		t.Fatalf("expected average 70, got %v", heartRate["average"])
	}
	if count, _ := heartRate["count"].(float64); int(count) != 2 {
		t.Fatalf("expected in-window count 2, got %v", heartRate["count"])
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/tracker/chart?metric_type=heart_rate&days=7", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chart failed: %d %s", rec.Code, rec.Body.String())
	}
	points, _ := decodeJSONMap(t, rec)["points"].([]any)
	if len(points) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(points))
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/tracker/chart", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without metric_type, got %d", rec.Code)
	}
}

func TestReportLifecycle(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/reports", token, map[string]any{
		"title":   "February checkup",
		"content": "Blood pressure trending down.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create report failed: %d %s", rec.Code, rec.Body.String())
	}
	reportID, _ := decodeJSONMap(t, rec)["id"].(string)

	rec = performRequest(t, router, http.MethodPatch, "/api/v1/reports/"+reportID+"/status", token, map[string]any{
		"status": "archived",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", rec.Code)
	}

	rec = performRequest(t, router, http.MethodPatch, "/api/v1/reports/"+reportID+"/status", token, map[string]any{
		"status": "posted",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/reports/"+reportID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get report failed: %d %s", rec.Code, rec.Body.String())
	}
	report := decodeJSONMap(t, rec)
	if report["status"] != "posted" || report["title"] != "February checkup" {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/reports?status=draft", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reports failed: %d %s", rec.Code, rec.Body.String())
	}
	if reports, _ := decodeJSONMap(t, rec)["reports"].([]any); len(reports) != 0 {
		t.Fatalf("expected no drafts after posting, got %d", len(reports))
	}

	// Other users cannot see the report.
	other := seedUser(t, "", "")
	rec = performRequest(t, router, http.MethodGet, "/api/v1/reports/"+reportID, signToken(t, other), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign report, got %d", rec.Code)
	}
}

func TestSymptomEndpoints(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)

	rec := performRequest(t, router, http.MethodPost, "/api/v1/symptoms/assess", token, map[string]any{
		"symptom": "I think I have a fever",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("assess failed: %d %s", rec.Code, rec.Body.String())
	}
	assessment := decodeJSONMap(t, rec)
	if assessment["symptom"] != "fever" {
		t.Fatalf("expected fever assessment, got %+v", assessment)
	}

	rec = performRequest(t, router, http.MethodPost, "/api/v1/symptoms/analyze", token, map[string]any{
		"symptom":   "fever",
		"responses": map[string]string{"temperature": "103.5"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d %s", rec.Code, rec.Body.String())
	}
	if analysis := decodeJSONMap(t, rec); analysis["severity"] != "HIGH" {
		t.Fatalf("expected HIGH severity, got %+v", analysis)
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/symptoms/cough/red-flags", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("red flags failed: %d %s", rec.Code, rec.Body.String())
	}
	if flags, _ := decodeJSONMap(t, rec)["red_flags"].([]any); len(flags) != 6 {
		t.Fatalf("expected 6 cough red flags, got %d", len(flags))
	}
}

func TestDashboardStatsAndExport(t *testing.T) {
	resetDatabase(t)
	router := newTestRouter(t)
	userID := seedUser(t, "", "")
	token := signToken(t, userID)
	sessionID := seedChatSession(t, userID, "Sleep questions")
	seedTrackerEntry(t, userID, "sleep_hours", 7.5, time.Now().UTC())

	rec := performRequest(t, router, http.MethodPost, "/api/v1/chat/sessions/"+sessionID+"/messages", token, map[string]any{
		"message": "hello",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("post message failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/dashboard/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d %s", rec.Code, rec.Body.String())
	}
	stats := decodeJSONMap(t, rec)
	if count, _ := stats["chat_sessions"].(float64); int(count) != 1 {
		t.Fatalf("expected 1 session, got %v", stats["chat_sessions"])
	}
	if count, _ := stats["chat_messages"].(float64); int(count) != 2 {
		t.Fatalf("expected 2 messages, got %v", stats["chat_messages"])
	}
	if count, _ := stats["tracker_entries"].(float64); int(count) != 1 {
		t.Fatalf("expected 1 tracker entry, got %v", stats["tracker_entries"])
	}

	rec = performRequest(t, router, http.MethodGet, "/api/v1/export", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export failed: %d %s", rec.Code, rec.Body.String())
	}
	export := decodeJSONMap(t, rec)
	sessions, _ := export["chat_sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 exported session, got %d", len(sessions))
	}
	session, _ := sessions[0].(map[string]any)
	if messages, _ := session["messages"].([]any); len(messages) != 2 {
		t.Fatalf("expected 2 exported messages, got %+v", session)
	}
	if entries, _ := export["tracker_entries"].([]any); len(entries) != 1 {
		t.Fatalf("expected 1 exported tracker entry, got %d", len(entries))
	}
	profile, _ := export["profile"].(map[string]any)
	if profile["id"] != userID {
		t.Fatalf("expected profile in export, got %+v", profile)
	}
}
