package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medassist/backend/internal/config"
	"medassist/backend/internal/engine"
	"medassist/backend/internal/symptoms"
)

type App struct {
	cfg     config.Config
	db      *pgxpool.Pool
	bot     *engine.Engine
	checker *symptoms.Checker
	ai      AIClient
}

type AuthUser struct {
	ID             string
	Email          string
	Name           string
	Age            *int
	Gender         *string
	MedicalHistory string
}

func New(cfg config.Config, db *pgxpool.Pool, bot *engine.Engine) *App {
	app := &App{
		cfg:     cfg,
		db:      db,
		bot:     bot,
		checker: symptoms.NewChecker(),
	}
	if cfg.AIFallbackEnabled {
		app.ai = NewOpenAIChatClient(cfg)
	}
	return app
}

// WithAIClient swaps the fallback AI client. Used by tests and by callers
// that want the mock instead of a live OpenAI account.
func (a *App) WithAIClient(client AIClient) *App {
	a.ai = client
	return a
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)

	api.POST("/auth/register", a.register)
	api.POST("/auth/login", a.login)

	authed := api.Group("")
	authed.Use(a.authMiddleware())

	authed.GET("/profile", a.getProfile)
	authed.PUT("/profile", a.updateProfile)
	authed.POST("/auth/change-password", a.changePassword)

	authed.POST("/chat/sessions", a.createChatSession)
	authed.GET("/chat/sessions", a.listChatSessions)
	authed.GET("/chat/sessions/:session_id/messages", a.listChatMessages)
	authed.POST("/chat/sessions/:session_id/messages", a.postChatMessage)
	authed.POST("/chat/query", a.chatQuery)
	authed.GET("/chat/ws", a.chatWebSocket)

	authed.POST("/tracker/entries", a.addTrackerEntry)
	authed.GET("/tracker/entries", a.listTrackerEntries)
	authed.DELETE("/tracker/entries/:entry_id", a.deleteTrackerEntry)
	authed.GET("/tracker/summary", a.trackerSummary)
	authed.GET("/tracker/chart", a.trackerChart)

	authed.POST("/reports", a.createReport)
	authed.GET("/reports", a.listReports)
	authed.GET("/reports/:report_id", a.getReport)
	authed.PATCH("/reports/:report_id/status", a.updateReportStatus)

	authed.POST("/symptoms/assess", a.assessSymptom)
	authed.POST("/symptoms/analyze", a.analyzeSymptom)
	authed.GET("/symptoms/:symptom/red-flags", a.symptomRedFlags)
	authed.GET("/symptoms/:symptom/self-care", a.symptomSelfCare)

	authed.GET("/dashboard/stats", a.dashboardStats)
	authed.GET("/export", a.exportUserData)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "medassist-api",
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		user, err := a.getUser(c.Request.Context(), sub)
		if err != nil {
			writeError(c, http.StatusUnauthorized, err.Error())
			return
		}

		c.Set("authUser", user)
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func (a *App) getUser(ctx context.Context, userID string) (AuthUser, error) {
	user := AuthUser{}
	err := a.db.QueryRow(
		ctx,
		`SELECT id, email, name, age, gender, medical_history FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.Age, &user.Gender, &user.MedicalHistory)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, errors.New("User not found")
	}
	if err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

// sessionOwnedByUser confirms the chat session exists and belongs to the user.
func (a *App) sessionOwnedByUser(ctx context.Context, sessionID, userID string) (int, error) {
	var owner string
	err := a.db.QueryRow(
		ctx,
		`SELECT user_id FROM chat_sessions WHERE id = $1`,
		sessionID,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return http.StatusNotFound, errors.New("Chat session not found")
	}
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if owner != userID {
		return http.StatusForbidden, errors.New("Chat session access denied")
	}
	return http.StatusOK, nil
}

func authUserFromContext(c *gin.Context) (AuthUser, bool) {
	raw, ok := c.Get("authUser")
	if !ok {
		return AuthUser{}, false
	}
	user, ok := raw.(AuthUser)
	return user, ok
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
