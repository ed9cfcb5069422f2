package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

func (a *App) register(c *gin.Context) {
	req := registerRequest{}
	if !mustJSON(c, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(c, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	userID := uuid.NewString()
	_, err = a.db.Exec(
		c.Request.Context(),
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		userID,
		email,
		string(hash),
		name,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(c, http.StatusConflict, "Email already registered")
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	token, err := a.issueToken(userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user": gin.H{
			"id":    userID,
			"email": email,
			"name":  name,
		},
	})
}

func (a *App) login(c *gin.Context) {
	req := loginRequest{}
	if !mustJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var userID, passwordHash, name string
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT id, password_hash, name FROM users WHERE email = $1`,
		email,
	).Scan(&userID, &passwordHash, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		writeError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := a.issueToken(userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user": gin.H{
			"id":    userID,
			"email": email,
			"name":  name,
		},
	})
}

func (a *App) issueToken(userID string) (string, error) {
	ttl := a.cfg.JWTTTLHours
	if ttl <= 0 {
		ttl = 72
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(ttl) * time.Hour).Unix(),
	}
	if a.cfg.JWTAudience != "" {
		claims["aud"] = a.cfg.JWTAudience
	}
	if a.cfg.JWTIssuer != "" {
		claims["iss"] = a.cfg.JWTIssuer
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.JWTSecret))
}

func (a *App) getProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"email":           user.Email,
		"name":            user.Name,
		"age":             user.Age,
		"gender":          user.Gender,
		"medical_history": user.MedicalHistory,
	})
}

func (a *App) updateProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := profileUpdateRequest{}
	if !mustJSON(c, &req) {
		return
	}

	name := user.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(c, http.StatusBadRequest, "Name must not be empty")
			return
		}
	}
	age := user.Age
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 150 {
			writeError(c, http.StatusBadRequest, "Age out of range")
			return
		}
		age = req.Age
	}
	gender := user.Gender
	if req.Gender != nil {
		trimmed := strings.TrimSpace(*req.Gender)
		gender = &trimmed
	}
	history := user.MedicalHistory
	if req.MedicalHistory != nil {
		history = strings.TrimSpace(*req.MedicalHistory)
	}

	_, err := a.db.Exec(
		c.Request.Context(),
		`UPDATE users SET name = $2, age = $3, gender = $4, medical_history = $5, updated_at = NOW()
		 WHERE id = $1`,
		user.ID,
		name,
		age,
		gender,
		history,
	)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"email":           user.Email,
		"name":            name,
		"age":             age,
		"gender":          gender,
		"medical_history": history,
	})
}

func (a *App) changePassword(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	req := changePasswordRequest{}
	if !mustJSON(c, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(c, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	var currentHash string
	err := a.db.QueryRow(
		c.Request.Context(),
		`SELECT password_hash FROM users WHERE id = $1`,
		user.ID,
	).Scan(&currentHash)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.CurrentPassword)) != nil {
		writeError(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := a.db.Exec(
		c.Request.Context(),
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		user.ID,
		string(newHash),
	); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}
