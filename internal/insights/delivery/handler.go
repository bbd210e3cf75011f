package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/dto"
	"briefing-backend/internal/insights/repository"
	"briefing-backend/internal/insights/usecase"

	"github.com/gin-gonic/gin"
)

type InsightHandler struct {
	orchestrator *usecase.Orchestrator
	insightRepo  repository.InsightRepository
}

func NewInsightHandler(orchestrator *usecase.Orchestrator, insightRepo repository.InsightRepository) *InsightHandler {
	return &InsightHandler{
		orchestrator: orchestrator,
		insightRepo:  insightRepo,
	}
}

// GetAnalytics serves the orchestrated analytics fetch. With wait=false the
// handler returns 202 instead of blocking while a job runs.
func (h *InsightHandler) GetAnalytics(c *gin.Context) {
	userID := c.GetString("userID")

	daysBack := 30
	if v := c.Query("days_back"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			daysBack = parsed
		}
	}

	if c.Query("wait") == "false" {
		h.getAnalyticsNoWait(c, userID, daysBack)
		return
	}

	result, err := h.orchestrator.GetAnalytics(c.Request.Context(), userID, daysBack)
	if err != nil {
		if errors.Is(err, usecase.ErrJobFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getAnalyticsNoWait kicks off a job and reports "still processing" instead
// of holding the request open
func (h *InsightHandler) getAnalyticsNoWait(c *gin.Context, userID string, daysBack int) {
	job, _, err := h.orchestrator.CreateJob(userID, domain.JobTypeFullSync, map[string]interface{}{"days_back": daysBack})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "processing", "job_id": job.ID})
}

func (h *InsightHandler) CreateJob(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.JobType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job_type"})
		return
	}

	job, reused, err := h.orchestrator.CreateJob(userID, req.JobType, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if reused {
		status = http.StatusOK
	}
	c.JSON(status, dto.JobResponse{Job: job, Reused: reused})
}

func (h *InsightHandler) GetJob(c *gin.Context) {
	userID := c.GetString("userID")
	jobID := c.Param("id")

	job, err := h.orchestrator.GetJob(userID, jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse{Job: job})
}

func (h *InsightHandler) ListJobs(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	jobs, err := h.orchestrator.ListRecentJobs(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.JobsResponse{Jobs: jobs, Limit: limit})
}

// GetInsightRecords serves the newest record for an insight type, or its
// full history with ?history=true
func (h *InsightHandler) GetInsightRecords(c *gin.Context) {
	userID := c.GetString("userID")

	insightType := domain.InsightType(c.Param("type"))
	if !insightType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown insight type"})
		return
	}

	if c.Query("history") == "true" {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		records, err := h.insightRepo.ListHistory(userID, insightType, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto.InsightRecordsResponse{Records: records})
		return
	}

	record, err := h.insightRepo.GetLatest(userID, insightType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no insight computed yet"})
		return
	}

	c.JSON(http.StatusOK, record)
}
