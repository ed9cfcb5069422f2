package server

import (
	"strings"
	"time"
	"unicode/utf8"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileUpdateRequest struct {
	Name           *string `json:"name"`
	Age            *int    `json:"age"`
	Gender         *string `json:"gender"`
	MedicalHistory *string `json:"medical_history"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

type trackerEntryRequest struct {
	MetricType string  `json:"metric_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Notes      string  `json:"notes"`
	RecordedAt string  `json:"recorded_at"`
}

type reportCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type reportStatusRequest struct {
	Status string `json:"status"`
}

type symptomAssessRequest struct {
	Symptom string `json:"symptom"`
}

type symptomAnalyzeRequest struct {
	Symptom   string            `json:"symptom"`
	Responses map[string]string `json:"responses"`
}

var validMetricTypes = map[string]struct{}{
	"weight":         {},
	"blood_pressure": {},
	"heart_rate":     {},
	"blood_sugar":    {},
	"temperature":    {},
	"calories":       {},
	"sleep_hours":    {},
	"water_intake":   {},
	"steps":          {},
}

func normalizeMetricType(input string) (string, bool) {
	metric := strings.ToLower(strings.TrimSpace(input))
	if metric == "" {
		return "", false
	}
	_, ok := validMetricTypes[metric]
	return metric, ok
}

var validReportStatuses = map[string]struct{}{
	"draft":  {},
	"posted": {},
	"failed": {},
}

func normalizeReportStatus(input string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(input))
	if status == "" {
		return "", false
	}
	_, ok := validReportStatuses[status]
	return status, ok
}

// deriveSessionTitle turns the first user message into a session title,
// truncated at a rune boundary.
func deriveSessionTitle(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return "New conversation"
	}
	const limit = 48
	if utf8.RuneCountInString(title) <= limit {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseTimestamp accepts RFC3339 or a bare date, defaulting to now.
func parseTimestamp(value string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t.UTC(), nil
	}
	return parseDate(trimmed)
}

func startOfUTCDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
