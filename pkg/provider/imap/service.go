package imap

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"briefing-backend/pkg/provider"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service fetches mail over IMAP for accounts without a Gmail connection
type Service struct{}

// NewService creates an IMAP provider
func NewService() *Service {
	return &Service{}
}

// Name identifies the provider in message-cache rows
func (s *Service) Name() string {
	return "imap"
}

// FetchMessages connects to the user's IMAP server, searches the window and
// fetches the matching messages from INBOX
func (s *Service) FetchMessages(ctx context.Context, creds *provider.Credentials, opts provider.FetchOptions) ([]provider.RawMessage, error) {
	if creds.ServerAddr == "" {
		return nil, fmt.Errorf("imap server address is required")
	}

	c, err := client.DialTLS(creds.ServerAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", creds.ServerAddr, err)
	}
	defer c.Logout()

	if err := c.Login(creds.Username, creds.Password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	criteria.Since = time.Now().AddDate(0, 0, -daysBack)

	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(uids) == 0 {
		return []provider.RawMessage{}, nil
	}
	if opts.MaxResults > 0 && len(uids) > opts.MaxResults {
		uids = uids[len(uids)-opts.MaxResults:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	msgChan := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, msgChan)
	}()

	messages := make([]provider.RawMessage, 0, len(uids))
	for msg := range msgChan {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := parseMessage(msg.Uid, body)
		if err != nil {
			log.Printf("[IMAP] Skipping unparseable message %d: %v", msg.Uid, err)
			continue
		}
		messages = append(messages, raw)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}

	return messages, nil
}

// FetchEvents returns an empty slice: plain IMAP servers carry no calendar
func (s *Service) FetchEvents(ctx context.Context, creds *provider.Credentials, opts provider.FetchOptions) ([]provider.RawEvent, error) {
	return []provider.RawEvent{}, nil
}

// parseMessage reads one RFC822 message into the provider shape
func parseMessage(uid uint32, body io.Reader) (provider.RawMessage, error) {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return provider.RawMessage{}, err
	}

	header := mr.Header
	raw := provider.RawMessage{
		MessageID: fmt.Sprintf("imap-%d", uid),
	}
	if id, err := header.MessageID(); err == nil && id != "" {
		raw.MessageID = id
	}
	if subject, err := header.Subject(); err == nil {
		raw.Subject = subject
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		raw.FromEmail = strings.ToLower(from[0].Address)
	}
	if to, err := header.AddressList("To"); err == nil && len(to) > 0 {
		raw.ToEmail = strings.ToLower(to[0].Address)
	}
	if date, err := header.Date(); err == nil && !date.IsZero() {
		raw.InternalDate = &date
	}

	// Thread by subject when no threading headers are available
	raw.ThreadID = normalizeSubject(raw.Subject)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			if raw.Snippet == "" {
				if text, err := io.ReadAll(io.LimitReader(part.Body, 1000)); err == nil {
					raw.Snippet = strings.TrimSpace(string(text))
				}
			}
		case *mail.AttachmentHeader:
			if filename, _ := h.Filename(); filename != "" {
				raw.HasAttachments = true
			}
		}
	}

	return raw, nil
}

// normalizeSubject strips reply/forward prefixes so replies share a thread key
func normalizeSubject(subject string) string {
	lower := strings.ToLower(strings.TrimSpace(subject))
	for {
		trimmed := lower
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
		if trimmed == lower {
			return trimmed
		}
		lower = trimmed
	}
}
