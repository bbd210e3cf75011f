package notification

import (
	"context"
	"log"

	"briefing-backend/internal/insights/domain"
	"briefing-backend/pkg/fcm"
)

// Service pushes "briefing ready" notifications to a user's devices when an
// analytics job completes. It works without an FCM client (push disabled).
type Service struct {
	tokenRepo DeviceTokenRepository
	fcmClient *fcm.Client
}

// NewService creates a new notification Service
func NewService(tokenRepo DeviceTokenRepository, fcmClient *fcm.Client) *Service {
	return &Service{
		tokenRepo: tokenRepo,
		fcmClient: fcmClient,
	}
}

// NotifyJobCompleted sends a push to all of the user's devices. Failed tokens
// are removed so dead devices stop accumulating.
func (s *Service) NotifyJobCompleted(userID string, job *domain.Job) {
	if s.fcmClient == nil {
		return
	}

	tokens, err := s.tokenRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[Notification] Failed to load tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	data := fcm.NotificationData{
		Title: "Your briefing is ready",
		Body:  "Fresh insights from your mail and calendar are available.",
		Data: map[string]string{
			"type":     "briefing_ready",
			"job_id":   job.ID,
			"job_type": string(job.JobType),
		},
	}

	failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, data)
	if err != nil {
		log.Printf("[Notification] Failed to push to user %s: %v", userID, err)
		return
	}
	for _, token := range failedTokens {
		if err := s.tokenRepo.DeleteToken(token); err != nil {
			log.Printf("[Notification] Failed to clean up token: %v", err)
		}
	}

	log.Printf("[Notification] Notified user %s on %d devices", userID, len(tokenStrings)-len(failedTokens))
}
