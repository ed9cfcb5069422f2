package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (a *App) createReport(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := reportCreateRequest{}
	if !mustJSON(c, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(c, http.StatusBadRequest, "Title must not be empty")
		return
	}

	reportID := uuid.NewString()
	var createdAt time.Time
	err := a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO health_reports (id, user_id, title, content, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'draft', NOW(), NOW())
		 RETURNING created_at`,
		reportID,
		user.ID,
		title,
		req.Content,
	).Scan(&createdAt)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         reportID,
		"title":      title,
		"status":     "draft",
		"created_at": createdAt,
	})
}

func (a *App) listReports(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := `SELECT id, title, status, created_at, updated_at
	          FROM health_reports
	          WHERE user_id = $1`
	args := []any{user.ID}
	if status, ok := normalizeReportStatus(c.Query("status")); ok {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := a.db.Query(c.Request.Context(), query, args...)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	reports := make([]gin.H, 0)
	for rows.Next() {
		var id, title, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &title, &status, &createdAt, &updatedAt); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		reports = append(reports, gin.H{
			"id":         id,
			"title":      title,
			"status":     status,
			"created_at": createdAt,
			"updated_at": updatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (a *App) getReport(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	reportID := c.Param("report_id")

	var id, title, content, status string
	var createdAt, updatedAt time.Time
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, title, content, status, created_at, updated_at
		 FROM health_reports
		 WHERE id = $1 AND user_id = $2`,
		reportID,
		user.ID,
	).Scan(&id, &title, &content, &status, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         id,
		"title":      title,
		"content":    content,
		"status":     status,
		"created_at": createdAt,
		"updated_at": updatedAt,
	})
}

func (a *App) updateReportStatus(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	reportID := c.Param("report_id")
	req := reportStatusRequest{}
	if !mustJSON(c, &req) {
		return
	}
	status, ok := normalizeReportStatus(req.Status)
	if !ok {
		writeError(c, http.StatusBadRequest, "Status must be draft, posted, or failed")
		return
	}

	tag, err := a.db.Exec(
		c.Request.Context(),
		`UPDATE health_reports SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		reportID,
		user.ID,
		status,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Report not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": reportID, "status": status})
}
