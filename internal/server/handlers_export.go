package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// dashboardStats returns the headline counts the dashboard cards show.
func (a *App) dashboardStats(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	ctx := c.Request.Context()

	var sessionCount, messageCount, trackerCount, reportCount int
	var lastActivity *time.Time
	err := a.db.QueryRow(
		ctx,
		`SELECT
		   (SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1),
		   (SELECT COUNT(*) FROM chat_messages m
		      JOIN chat_sessions s ON s.id = m.session_id
		      WHERE s.user_id = $1),
		   (SELECT COUNT(*) FROM health_tracker WHERE user_id = $1),
		   (SELECT COUNT(*) FROM health_reports WHERE user_id = $1),
		   (SELECT MAX(updated_at) FROM chat_sessions WHERE user_id = $1)`,
		user.ID,
	).Scan(&sessionCount, &messageCount, &trackerCount, &reportCount, &lastActivity)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	topics := make([]string, 0)
	rows, err := a.db.Query(
		ctx,
		`SELECT DISTINCT ON (m.category) m.category
		 FROM chat_messages m
		 JOIN chat_sessions s ON s.id = m.session_id
		 WHERE s.user_id = $1 AND m.category <> ''
		 ORDER BY m.category, m.created_at DESC
		 LIMIT 10`,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		topics = append(topics, category)
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_sessions":   sessionCount,
		"chat_messages":   messageCount,
		"tracker_entries": trackerCount,
		"reports":         reportCount,
		"recent_topics":   topics,
		"last_activity":   lastActivity,
	})
}

// exportUserData bundles everything the user owns into one JSON document.
func (a *App) exportUserData(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	ctx := c.Request.Context()

	sessions := make([]gin.H, 0)
	rows, err := a.db.Query(
		ctx,
		`SELECT s.id, s.title, s.created_at, m.role, m.content, m.source, m.created_at
		 FROM chat_sessions s
		 LEFT JOIN chat_messages m ON m.session_id = s.id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at ASC, m.created_at ASC`,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var currentID string
	var current gin.H
	var currentMessages []gin.H
	flush := func() {
		if current != nil {
			current["messages"] = currentMessages
			sessions = append(sessions, current)
		}
	}
	for rows.Next() {
		var sessionID, title string
		var createdAt time.Time
		var role, content, source *string
		var messageAt *time.Time
		if err := rows.Scan(&sessionID, &title, &createdAt, &role, &content, &source, &messageAt); err != nil {
			rows.Close()
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if sessionID != currentID {
			flush()
			currentID = sessionID
			current = gin.H{"id": sessionID, "title": title, "created_at": createdAt}
			currentMessages = make([]gin.H, 0)
		}
		if role != nil {
			currentMessages = append(currentMessages, gin.H{
				"role":       *role,
				"content":    *content,
				"source":     *source,
				"created_at": *messageAt,
			})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	rows.Close()
	flush()

	trackerEntries := make([]gin.H, 0)
	rows, err = a.db.Query(
		ctx,
		`SELECT metric_type, value, unit, notes, recorded_at
		 FROM health_tracker WHERE user_id = $1 ORDER BY recorded_at ASC`,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for rows.Next() {
		var metricType, unit, notes string
		var value float64
		var recordedAt time.Time
		if err := rows.Scan(&metricType, &value, &unit, &notes, &recordedAt); err != nil {
			rows.Close()
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		trackerEntries = append(trackerEntries, gin.H{
			"metric_type": metricType,
			"value":       value,
			"unit":        unit,
			"notes":       notes,
			"recorded_at": recordedAt,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	rows.Close()

	reports := make([]gin.H, 0)
	rows, err = a.db.Query(
		ctx,
		`SELECT title, content, status, created_at
		 FROM health_reports WHERE user_id = $1 ORDER BY created_at ASC`,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	for rows.Next() {
		var title, content, status string
		var createdAt time.Time
		if err := rows.Scan(&title, &content, &status, &createdAt); err != nil {
			rows.Close()
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		reports = append(reports, gin.H{
			"title":      title,
			"content":    content,
			"status":     status,
			"created_at": createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	rows.Close()

	c.JSON(http.StatusOK, gin.H{
		"exported_at": time.Now().UTC(),
		"profile": gin.H{
			"id":              user.ID,
			"email":           user.Email,
			"name":            user.Name,
			"age":             user.Age,
			"gender":          user.Gender,
			"medical_history": user.MedicalHistory,
		},
		"chat_sessions":   sessions,
		"tracker_entries": trackerEntries,
		"reports":         reports,
	})
}
