package provider

import (
	"context"
	"fmt"
)

// StaticStore serves one fixed set of credentials for every user. It backs
// single-account deployments and tests; multi-user token storage lives in
// the auth service.
type StaticStore struct {
	creds Credentials
}

// NewStaticStore creates a StaticStore
func NewStaticStore(creds Credentials) *StaticStore {
	return &StaticStore{creds: creds}
}

func (s *StaticStore) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	if s.creds.AccessToken == "" && s.creds.Password == "" {
		return nil, fmt.Errorf("no provider credentials configured")
	}
	c := s.creds
	return &c, nil
}
