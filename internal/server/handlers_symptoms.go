package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) assessSymptom(c *gin.Context) {
	req := symptomAssessRequest{}
	if !mustJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Symptom) == "" {
		writeError(c, http.StatusBadRequest, "Symptom must not be empty")
		return
	}
	c.JSON(http.StatusOK, a.checker.StartAssessment(req.Symptom))
}

func (a *App) analyzeSymptom(c *gin.Context) {
	req := symptomAnalyzeRequest{}
	if !mustJSON(c, &req) {
		return
	}
	symptom := strings.ToLower(strings.TrimSpace(req.Symptom))
	if symptom == "" {
		writeError(c, http.StatusBadRequest, "Symptom must not be empty")
		return
	}
	c.JSON(http.StatusOK, a.checker.AnalyzeResponses(symptom, req.Responses))
}

func (a *App) symptomRedFlags(c *gin.Context) {
	symptom := strings.ToLower(strings.TrimSpace(c.Param("symptom")))
	c.JSON(http.StatusOK, gin.H{
		"symptom":   symptom,
		"red_flags": a.checker.RedFlags(symptom),
	})
}

func (a *App) symptomSelfCare(c *gin.Context) {
	symptom := strings.ToLower(strings.TrimSpace(c.Param("symptom")))
	c.JSON(http.StatusOK, gin.H{
		"symptom": symptom,
		"tips":    a.checker.SelfCareTips(symptom),
	})
}
