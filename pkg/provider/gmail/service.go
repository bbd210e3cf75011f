package gmail

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"briefing-backend/pkg/provider"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is invoked when the oauth2 token source refreshes the
// access token, so the caller can persist it
type TokenUpdateFunc func(*oauth2.Token) error

// Service fetches mail and calendar data through the Google APIs
type Service struct {
	clientID     string
	clientSecret string
	onRefresh    TokenUpdateFunc
}

// notifyTokenSource wraps a token source to detect refreshes
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// NewService creates a Gmail/Calendar provider
func NewService(clientID, clientSecret string, onRefresh TokenUpdateFunc) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		onRefresh:    onRefresh,
	}
}

// Name identifies the provider in message-cache rows
func (s *Service) Name() string {
	return "gmail"
}

func (s *Service) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}
}

func (s *Service) initialToken(creds *provider.Credentials) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}
	// Force a refresh when we hold a refresh token, so expired access
	// tokens never reach the API
	if creds.RefreshToken != "" {
		token.Expiry = time.Now()
	}
	return token
}

func (s *Service) gmailService(ctx context.Context, creds *provider.Credentials) (*gmail.Service, error) {
	client := oauth2.NewClient(ctx, s.tokenSource(ctx, creds))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

func (s *Service) calendarService(ctx context.Context, creds *provider.Credentials) (*calendar.Service, error) {
	client := oauth2.NewClient(ctx, s.tokenSource(ctx, creds))
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	return srv, nil
}

func (s *Service) tokenSource(ctx context.Context, creds *provider.Credentials) oauth2.TokenSource {
	token := s.initialToken(creds)
	return &notifyTokenSource{
		src:      s.oauthConfig().TokenSource(ctx, token),
		current:  token,
		callback: s.onRefresh,
	}
}

// FetchMessages lists and fetches the user's recent messages. Message bodies
// are fetched concurrently with a bounded number of in-flight requests.
func (s *Service) FetchMessages(ctx context.Context, creds *provider.Credentials, opts provider.FetchOptions) ([]provider.RawMessage, error) {
	srv, err := s.gmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	user := "me"
	q := ""
	if opts.DaysBack > 0 {
		q = fmt.Sprintf("newer_than:%dd", opts.DaysBack)
	}
	maxResults := int64(opts.MaxResults)
	if maxResults <= 0 || maxResults > 500 {
		maxResults = 500 // Gmail API maximum
	}

	listQuery := srv.Users.Messages.List(user).MaxResults(maxResults)
	if q != "" {
		listQuery = listQuery.Q(q)
	}
	listResp, err := listQuery.Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	type fetchResult struct {
		msg provider.RawMessage
		err error
	}
	results := make(chan fetchResult, len(listResp.Messages))
	semaphore := make(chan struct{}, 10)

	for _, m := range listResp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			full, err := srv.Users.Messages.Get(user, msgID).Format("full").Do()
			if err != nil {
				results <- fetchResult{err: err}
				return
			}
			results <- fetchResult{msg: convertMessage(full)}
		}(m.Id)
	}

	messages := make([]provider.RawMessage, 0, len(listResp.Messages))
	var fetchErr error
	for range listResp.Messages {
		res := <-results
		if res.err != nil {
			fetchErr = res.err
			continue
		}
		messages = append(messages, res.msg)
	}
	if len(messages) == 0 && fetchErr != nil {
		return nil, fmt.Errorf("unable to fetch messages: %w", fetchErr)
	}

	return messages, nil
}

// FetchEvents lists the user's primary-calendar events inside the window
func (s *Service) FetchEvents(ctx context.Context, creds *provider.Credentials, opts provider.FetchOptions) ([]provider.RawEvent, error) {
	srv, err := s.calendarService(ctx, creds)
	if err != nil {
		return nil, err
	}

	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	timeMin := time.Now().AddDate(0, 0, -daysBack)

	resp, err := srv.Events.List("primary").
		TimeMin(timeMin.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list calendar events: %w", err)
	}

	events := make([]provider.RawEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		event := provider.RawEvent{
			EventID:     item.Id,
			Title:       item.Summary,
			Description: item.Description,
		}
		if item.Start != nil && item.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
				event.StartsAt = &t
			}
		}
		events = append(events, event)
	}
	return events, nil
}

// convertMessage maps a Gmail API message to the provider shape
func convertMessage(msg *gmail.Message) provider.RawMessage {
	raw := provider.RawMessage{
		MessageID: msg.Id,
		ThreadID:  msg.ThreadId,
		Snippet:   msg.Snippet,
	}
	if msg.InternalDate > 0 {
		t := time.UnixMilli(msg.InternalDate)
		raw.InternalDate = &t
	}
	if msg.Payload == nil {
		return raw
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "subject":
			raw.Subject = header.Value
		case "from":
			raw.FromEmail = extractAddress(header.Value)
		case "to":
			raw.ToEmail = extractAddress(header.Value)
		}
	}
	for _, part := range msg.Payload.Parts {
		if part.Filename != "" {
			raw.HasAttachments = true
			break
		}
	}
	return raw
}

// extractAddress pulls the bare address out of "Name <addr@host>" headers
func extractAddress(header string) string {
	if start := strings.Index(header, "<"); start >= 0 {
		if end := strings.Index(header[start:], ">"); end > 0 {
			return strings.ToLower(header[start+1 : start+end])
		}
	}
	return strings.ToLower(strings.TrimSpace(header))
}
