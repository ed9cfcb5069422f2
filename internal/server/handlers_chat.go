package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medassist/backend/internal/engine"
)

const sourceAI = "ai"

func (a *App) createChatSession(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := createSessionRequest{}
	if !mustJSON(c, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New conversation"
	}

	sessionID := uuid.NewString()
	var createdAt time.Time
	err := a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING created_at`,
		sessionID,
		user.ID,
		title,
	).Scan(&createdAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         sessionID,
		"title":      title,
		"created_at": createdAt,
	})
}

func (a *App) listChatSessions(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT s.id, s.title, s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)
		 FROM chat_sessions s
		 WHERE s.user_id = $1
		 ORDER BY s.updated_at DESC`,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	sessions := make([]gin.H, 0)
	for rows.Next() {
		var id, title string
		var createdAt, updatedAt time.Time
		var messageCount int
		if err := rows.Scan(&id, &title, &createdAt, &updatedAt, &messageCount); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		sessions = append(sessions, gin.H{
			"id":            id,
			"title":         title,
			"created_at":    createdAt,
			"updated_at":    updatedAt,
			"message_count": messageCount,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (a *App) listChatMessages(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	sessionID := c.Param("session_id")
	if statusCode, err := a.sessionOwnedByUser(c.Request.Context(), sessionID, user.ID); err != nil {
		writeError(c, statusCode, err.Error())
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT id, role, content, source, intent, category, severity, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	messages := make([]gin.H, 0)
	for rows.Next() {
		var id, role, content, source, intent, category, severity string
		var createdAt time.Time
		if err := rows.Scan(&id, &role, &content, &source, &intent, &category, &severity, &createdAt); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		messages = append(messages, gin.H{
			"id":         id,
			"role":       role,
			"content":    content,
			"source":     source,
			"intent":     intent,
			"category":   category,
			"severity":   severity,
			"created_at": createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}

func (a *App) postChatMessage(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	sessionID := c.Param("session_id")
	if statusCode, err := a.sessionOwnedByUser(c.Request.Context(), sessionID, user.ID); err != nil {
		writeError(c, statusCode, err.Error())
		return
	}

	req := chatMessageRequest{}
	if !mustJSON(c, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(c, http.StatusBadRequest, "Message must not be empty")
		return
	}

	reply := a.answer(c.Request.Context(), sessionID, message)
	if err := a.persistExchange(c.Request.Context(), sessionID, message, reply); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"reply":      reply.Text,
		"source":     reply.Source,
		"intent":     reply.Intent,
		"category":   reply.Category,
		"severity":   reply.Severity,
	})
}

// persistExchange stores the user message and the reply as chat_messages
// rows. The first user message also names the session.
func (a *App) persistExchange(ctx context.Context, sessionID, message string, reply engine.Reply) error {
	if _, err := a.db.Exec(
		ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at)
		 VALUES ($1, $2, 'user', $3, NOW())`,
		uuid.NewString(),
		sessionID,
		message,
	); err != nil {
		return err
	}

	if _, err := a.db.Exec(
		ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, source, intent, category, severity, created_at)
		 VALUES ($1, $2, 'bot', $3, $4, $5, $6, $7, NOW())`,
		uuid.NewString(),
		sessionID,
		reply.Text,
		string(reply.Source),
		reply.Intent,
		reply.Category,
		reply.Severity,
	); err != nil {
		return err
	}

	_, err := a.db.Exec(
		ctx,
		`UPDATE chat_sessions
		 SET title = CASE WHEN title = 'New conversation' THEN $2 ELSE title END,
		     updated_at = NOW()
		 WHERE id = $1`,
		sessionID,
		deriveSessionTitle(message),
	)
	return err
}

// chatQuery answers one-off questions without a stored session. Context
// continuity still works within the ad-hoc engine session per user.
func (a *App) chatQuery(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := chatMessageRequest{}
	if !mustJSON(c, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(c, http.StatusBadRequest, "Message must not be empty")
		return
	}

	reply := a.answer(c.Request.Context(), "adhoc:"+user.ID, message)
	c.JSON(http.StatusOK, gin.H{
		"reply":    reply.Text,
		"source":   reply.Source,
		"intent":   reply.Intent,
		"category": reply.Category,
		"severity": reply.Severity,
	})
}

// answer runs the rule engine and, when it falls back and an AI client is
// configured, consults the AI instead. Emergency and knowledge answers never
// reach the AI. AI failures degrade to the rule engine's fallback text.
func (a *App) answer(ctx context.Context, engineSessionID, message string) engine.Reply {
	reply := a.bot.Respond(engineSessionID, message)
	if reply.Source != engine.SourceFallback || a.ai == nil {
		return reply
	}

	turns := historyToTurns(a.bot.History(engineSessionID), 12)
	answer, err := a.ai.Complete(ctx, turns, message)
	if err != nil {
		log.Printf("ai fallback failed, using rule fallback: %v", err)
		return reply
	}
	reply.Text = answer
	reply.Source = sourceAI
	return reply
}

// historyToTurns converts the most recent engine turns, excluding the
// just-appended exchange so the question is not duplicated in the prompt.
func historyToTurns(history []engine.Turn, limit int) []ChatTurn {
	if len(history) >= 2 {
		history = history[:len(history)-2]
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	turns := make([]ChatTurn, 0, len(history))
	for _, turn := range history {
		role := "user"
		if turn.Role == engine.RoleBot {
			role = "assistant"
		}
		turns = append(turns, ChatTurn{Role: role, Content: turn.Message})
	}
	return turns
}
