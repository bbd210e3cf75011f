package dto

import (
	"briefing-backend/internal/insights/domain"
	"briefing-backend/internal/insights/engine"
)

// AnalyticsPayload is the computed analytics result served to callers and
// stored in the analytics cache
type AnalyticsPayload struct {
	TotalMessages    int                 `json:"total_messages"`
	DaysBack         int                 `json:"days_back"`
	PriorityCounts   map[string]int      `json:"priority_counts"`
	Topics           []engine.Topic      `json:"topics"`
	Sentiment        engine.Sentiment    `json:"sentiment"`
	ActionItems      []engine.ActionItem `json:"action_items"`
	AvgResponseHours *float64            `json:"avg_response_hours,omitempty"`
}

// AnalyticsResponse wraps a payload with where it came from
type AnalyticsResponse struct {
	Source  string            `json:"source"` // cache, job or fallback
	JobID   string            `json:"job_id,omitempty"`
	Payload *AnalyticsPayload `json:"payload"`
}

// CreateJobRequest is the body of POST /api/insights/jobs
type CreateJobRequest struct {
	JobType  domain.JobType         `json:"job_type" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// JobResponse wraps a job row with whether an existing job was reused
type JobResponse struct {
	Job    *domain.Job `json:"job"`
	Reused bool        `json:"reused,omitempty"`
}

// JobsResponse is the body of GET /api/insights/jobs
type JobsResponse struct {
	Jobs  []*domain.Job `json:"jobs"`
	Limit int           `json:"limit"`
}

// InsightRecordsResponse is the body of the insight history endpoint
type InsightRecordsResponse struct {
	Records []*domain.InsightRecord `json:"records"`
}

// RegisterDeviceRequest is the body of POST /api/notifications/register
type RegisterDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}
