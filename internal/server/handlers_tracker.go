package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (a *App) addTrackerEntry(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := trackerEntryRequest{}
	if !mustJSON(c, &req) {
		return
	}
	metric, ok := normalizeMetricType(req.MetricType)
	if !ok {
		writeError(c, http.StatusBadRequest, "Unknown metric type")
		return
	}
	recordedAt, err := parseTimestamp(req.RecordedAt, time.Now())
	if err != nil {
		writeError(c, http.StatusBadRequest, "Invalid recorded_at timestamp")
		return
	}

	entryID := uuid.NewString()
	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO health_tracker (id, user_id, metric_type, value, unit, notes, recorded_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		entryID,
		user.ID,
		metric,
		req.Value,
		req.Unit,
		req.Notes,
		recordedAt,
	); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          entryID,
		"metric_type": metric,
		"value":       req.Value,
		"unit":        req.Unit,
		"recorded_at": recordedAt,
	})
}

func (a *App) listTrackerEntries(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := `SELECT id, metric_type, value, unit, notes, recorded_at
	          FROM health_tracker
	          WHERE user_id = $1`
	args := []any{user.ID}
	if metric, ok := normalizeMetricType(c.Query("metric_type")); ok {
		query += ` AND metric_type = $2`
		args = append(args, metric)
	}
	query += ` ORDER BY recorded_at DESC LIMIT 500`

	rows, err := a.db.Query(c.Request.Context(), query, args...)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	entries := make([]gin.H, 0)
	for rows.Next() {
		var id, metricType, unit, notes string
		var value float64
		var recordedAt time.Time
		if err := rows.Scan(&id, &metricType, &value, &unit, &notes, &recordedAt); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		entries = append(entries, gin.H{
			"id":          id,
			"metric_type": metricType,
			"value":       value,
			"unit":        unit,
			"notes":       notes,
			"recorded_at": recordedAt,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (a *App) deleteTrackerEntry(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	entryID := c.Param("entry_id")

	tag, err := a.db.Exec(
		c.Request.Context(),
		`DELETE FROM health_tracker WHERE id = $1 AND user_id = $2`,
		entryID,
		user.ID,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Tracker entry not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// trackerSummary aggregates min/max/average per metric over the last N days.
func (a *App) trackerSummary(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	days := queryDays(c, 30)
	since := startOfUTCDay(time.Now()).AddDate(0, 0, -days+1)

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT metric_type, COUNT(*), MIN(value), MAX(value), AVG(value), MAX(recorded_at)
		 FROM health_tracker
		 WHERE user_id = $1 AND recorded_at >= $2
		 GROUP BY metric_type
		 ORDER BY metric_type`,
		user.ID,
		since,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	metrics := make([]gin.H, 0)
	for rows.Next() {
		var metricType string
		var count int
		var minValue, maxValue, avgValue float64
		var latest time.Time
		if err := rows.Scan(&metricType, &count, &minValue, &maxValue, &avgValue, &latest); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		metrics = append(metrics, gin.H{
			"metric_type": metricType,
			"count":       count,
			"min":         minValue,
			"max":         maxValue,
			"average":     avgValue,
			"latest_at":   latest,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "metrics": metrics})
}

// trackerChart returns daily averages for one metric, suitable for plotting.
func (a *App) trackerChart(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	metric, ok := normalizeMetricType(c.Query("metric_type"))
	if !ok {
		writeError(c, http.StatusBadRequest, "Unknown metric type")
		return
	}
	days := queryDays(c, 14)
	since := startOfUTCDay(time.Now()).AddDate(0, 0, -days+1)

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT date_trunc('day', recorded_at) AS day, AVG(value)
		 FROM health_tracker
		 WHERE user_id = $1 AND metric_type = $2 AND recorded_at >= $3
		 GROUP BY day
		 ORDER BY day ASC`,
		user.ID,
		metric,
		since,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	points := make([]gin.H, 0)
	for rows.Next() {
		var day time.Time
		var avgValue float64
		if err := rows.Scan(&day, &avgValue); err != nil {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		points = append(points, gin.H{
			"date":  day.UTC().Format("2006-01-02"),
			"value": avgValue,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"metric_type": metric, "days": days, "points": points})
}

func queryDays(c *gin.Context, fallback int) int {
	raw := c.Query("days")
	if raw == "" {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return clampInt(days, 1, 365)
}
