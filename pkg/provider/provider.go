// Package provider abstracts the external mail/calendar sources the worker
// fetches raw data from. Implementations live in subpackages; the analytics
// core only ever sees the RawMessage/RawEvent shapes.
package provider

import (
	"context"
	"time"
)

// Credentials carries a user's OAuth (or password) material for one provider
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Username     string
	Password     string
	ServerAddr   string
}

// CredentialsStore resolves a user's provider credentials. Token storage and
// refresh belong to the auth surface, not this core.
type CredentialsStore interface {
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)
}

// FetchOptions bounds a provider fetch
type FetchOptions struct {
	DaysBack   int
	MaxResults int
}

// RawMessage is one provider message before it is normalized into the cache
type RawMessage struct {
	MessageID      string
	ThreadID       string
	Subject        string
	Snippet        string
	FromEmail      string
	ToEmail        string
	HasAttachments bool
	InternalDate   *time.Time
	RawPayload     string
}

// RawEvent is one provider calendar event
type RawEvent struct {
	EventID     string
	Title       string
	Description string
	StartsAt    *time.Time
}

// Provider fetches raw mail and calendar data for a user
type Provider interface {
	// Name identifies the provider in message-cache rows
	Name() string
	// FetchMessages returns the user's recent messages
	FetchMessages(ctx context.Context, creds *Credentials, opts FetchOptions) ([]RawMessage, error)
	// FetchEvents returns the user's upcoming and recent calendar events.
	// Providers without a calendar return an empty slice.
	FetchEvents(ctx context.Context, creds *Credentials, opts FetchOptions) ([]RawEvent, error)
}
