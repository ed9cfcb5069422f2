package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"medassist/backend/internal/config"
	"medassist/backend/internal/db"
	"medassist/backend/internal/engine"
)

var (
	testPool              *pgxpool.Pool
	baseTestConfig        config.Config
	integrationDBReady    bool
	integrationSkipReason string
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()

	testDatabaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if testDatabaseURL == "" {
		integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not set"
		fmt.Fprintln(os.Stderr, integrationSkipReason)
		os.Exit(m.Run())
	}
	testDatabaseURL = withSimpleProtocol(testDatabaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, testDatabaseURL)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration test setup failed: cannot connect TEST_DATABASE_URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	err = pool.Ping(ctx)
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: database ping failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(ctx, pool)
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: migrate: %v\n", err)
		os.Exit(1)
	}

	testPool = pool
	integrationDBReady = true

	exitCode := m.Run()
	testPool.Close()
	os.Exit(exitCode)
}

func withSimpleProtocol(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	queries := parsed.Query()
	queries.Set("default_query_exec_mode", "simple_protocol")
	parsed.RawQuery = queries.Encode()
	return parsed.String()
}

func newTestConfig() config.Config {
	cfg := config.Config{
		AppEnv:            "test",
		AppName:           "MedAssist API Test",
		APIPrefix:         "/api/v1",
		AppPort:           "0",
		DatabaseURL:       "test",
		KnowledgeBasePath: "testdata-unused",
		HistoryLimit:      200,
		JWTSecret:         "test-secret-1234567890",
		JWTAlgorithm:      "HS256",
		JWTTTLHours:       1,
		CORSAllowOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:3000",
		},
	}

	if v := strings.TrimSpace(os.Getenv("TEST_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	return cfg
}

func testKnowledgeBase(t *testing.T) *engine.KnowledgeBase {
	t.Helper()
	kb, err := engine.LoadKnowledgeBase("../engine/testdata/knowledge_base.json")
	if err != nil {
		t.Fatalf("load test knowledge base: %v", err)
	}
	return kb
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if !integrationDBReady {
		if integrationSkipReason == "" {
			integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not configured"
		}
		t.Skip(integrationSkipReason)
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	requireIntegration(t)
	bot := engine.New(testKnowledgeBase(t), engine.Options{
		Store: engine.NewMemoryStore(baseTestConfig.HistoryLimit),
	})
	return New(baseTestConfig, testPool, bot)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestApp(t).Router()
}

func resetDatabase(t *testing.T) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`TRUNCATE TABLE
			chat_messages,
			chat_sessions,
			health_tracker,
			health_reports,
			users
		RESTART IDENTITY CASCADE`,
	)
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

func seedUser(t *testing.T, email, password string) string {
	t.Helper()
	requireIntegration(t)
	if strings.TrimSpace(email) == "" {
		email = "user-" + testID()[:8] + "@example.com"
	}
	if password == "" {
		password = "test-password-1"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID := testID()
	_, err = testPool.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		userID,
		strings.ToLower(email),
		string(hash),
		"user-"+userID[:8],
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return userID
}

func seedChatSession(t *testing.T, userID, title string) string {
	t.Helper()
	requireIntegration(t)
	if strings.TrimSpace(title) == "" {
		title = "New conversation"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessionID := testID()
	_, err := testPool.Exec(
		ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())`,
		sessionID,
		userID,
		title,
	)
	if err != nil {
		t.Fatalf("seed chat session: %v", err)
	}
	return sessionID
}

func seedTrackerEntry(t *testing.T, userID, metricType string, value float64, recordedAt time.Time) string {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entryID := testID()
	_, err := testPool.Exec(
		ctx,
		`INSERT INTO health_tracker (id, user_id, metric_type, value, unit, notes, recorded_at, created_at)
		 VALUES ($1, $2, $3, $4, '', '', $5, NOW())`,
		entryID,
		userID,
		metricType,
		value,
		recordedAt.UTC(),
	)
	if err != nil {
		t.Fatalf("seed tracker entry: %v", err)
	}
	return entryID
}

func signToken(t *testing.T, sub string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(baseTestConfig.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func responseDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	detail, _ := body["detail"].(string)
	return detail
}

func testID() string {
	return uuid.NewString()
}
