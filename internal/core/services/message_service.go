package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fingate-portal/internal/adapters/rest"
	"fingate-portal/internal/core/domain"
)

// Message service errors
var (
	ErrEmptyMessage         = fmt.Errorf("%w: message body is empty", domain.ErrValidation)
	ErrConfirmationRequired = fmt.Errorf("%w: deleting a message requires confirmation", domain.ErrValidation)
	ErrUnknownDecision      = fmt.Errorf("%w: moderation decision must be approve or reject", domain.ErrValidation)
	ErrNotMessageSender     = fmt.Errorf("%w: only the sender may modify a message", domain.ErrPermission)
	ErrAdminOnly            = fmt.Errorf("%w: moderation is admin-only", domain.ErrPermission)
	ErrMessageRejected      = fmt.Errorf("%w: message was rejected by moderation", domain.ErrConflict)
)

// ModerationDecision represents an admin moderation verdict
type ModerationDecision string

const (
	DecisionApprove ModerationDecision = "approve"
	DecisionReject  ModerationDecision = "reject"
)

// MessageService owns the per-application moderated chat. Messages from roles
// that require moderation start pending and become visible to everyone only
// after an admin approves them; the server decides the initial status.
type MessageService struct {
	api     *rest.MessageAPI
	session *Session
	store   *MessageStore
}

// NewMessageService creates a new message service
func NewMessageService(api *rest.MessageAPI, session *Session, store *MessageStore) *MessageService {
	return &MessageService{api: api, session: session, store: store}
}

// Send posts a new message. The body is validated locally before any request
// is issued; the resulting moderation status comes from the server and is
// never assumed client-side.
func (s *MessageService) Send(ctx context.Context, applicationID uint, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	message, err := s.api.Send(ctx, applicationID, body)
	if err != nil {
		return nil, err
	}

	s.store.Invalidate(applicationID)
	return message, nil
}

// Edit updates the caller's own message. A message the last refresh showed as
// rejected is refused locally: rejection is terminal and an edit cannot
// resurrect it. The server stays authoritative for sender checks.
func (s *MessageService) Edit(ctx context.Context, applicationID, messageID uint, newBody string) (*domain.Message, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return nil, ErrEmptyMessage
	}

	if err := s.guardOwn(applicationID, messageID); err != nil {
		return nil, err
	}

	message, err := s.api.Edit(ctx, messageID, newBody)
	if err != nil {
		return nil, fmt.Errorf("edit message %d: %w", messageID, err)
	}

	s.store.Invalidate(applicationID)
	return message, nil
}

// Delete removes the caller's own message. Deletion is destructive: the
// caller must pass confirmed=true after an explicit confirmation step, or the
// request is never issued.
func (s *MessageService) Delete(ctx context.Context, applicationID, messageID uint, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := s.guardOwn(applicationID, messageID); err != nil {
		return err
	}

	if err := s.api.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}

	s.store.Invalidate(applicationID)
	return nil
}

// Moderate applies an admin verdict to a pending message. Moderation is
// monotonic: once approved or rejected the server either refuses (409) or
// treats the repeat as a no-op, and a message never returns to pending.
func (s *MessageService) Moderate(ctx context.Context, applicationID, messageID uint, decision ModerationDecision) error {
	if s.session.Role() != domain.RoleAdmin {
		return ErrAdminOnly
	}

	var err error
	switch decision {
	case DecisionApprove:
		err = s.api.Approve(ctx, messageID)
	case DecisionReject:
		err = s.api.Reject(ctx, messageID)
	default:
		return ErrUnknownDecision
	}
	if err != nil {
		return fmt.Errorf("moderate message %d: %w", messageID, err)
	}

	s.store.Invalidate(applicationID)
	return nil
}

// List returns the application's messages ascending by creation time,
// serving the cached list when no mutation invalidated it. Visibility
// filtering (own pending/rejected vs everyone's approved) is server-side.
func (s *MessageService) List(ctx context.Context, applicationID uint) ([]*domain.Message, error) {
	if messages, ok := s.store.Get(applicationID); ok {
		return messages, nil
	}

	messages, err := s.fetch(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	s.store.Set(applicationID, messages)
	return messages, nil
}

// Refresh re-fetches the message list for the poller. A response arriving
// after the subscription was stopped is discarded, not applied.
func (s *MessageService) Refresh(ctx context.Context, applicationID uint) error {
	messages, err := s.fetch(ctx, applicationID)
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.store.Set(applicationID, messages)
	return nil
}

// fetch retrieves and orders the message list
func (s *MessageService) fetch(ctx context.Context, applicationID uint) ([]*domain.Message, error) {
	messages, err := s.api.List(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	// The contract promises ascending order; keep it stable regardless
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

// guardOwn refuses edits/deletes the last refresh already showed as not the
// caller's message or as rejected. An unknown message goes to the server.
func (s *MessageService) guardOwn(applicationID, messageID uint) error {
	known, ok := s.store.Find(applicationID, messageID)
	if !ok {
		return nil
	}

	if user := s.session.CurrentUser(); user != nil && known.SenderUserID != user.ID {
		return ErrNotMessageSender
	}
	if known.ModerationStatus == domain.ModerationRejected {
		return ErrMessageRejected
	}
	return nil
}
