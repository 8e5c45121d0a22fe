package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role represents user role in the portal
type Role string

const (
	RoleClient  Role = "client"
	RoleAgent   Role = "agent"
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

// User represents the authenticated user in the domain layer
type User struct {
	ID       uint
	Username string
	Role     Role
}

// DocumentStatus represents the lifecycle state of an uploaded document
type DocumentStatus string

const (
	DocumentTemporary DocumentStatus = "temporary"
	DocumentConfirmed DocumentStatus = "confirmed"
	DocumentArchived  DocumentStatus = "archived"
)

// OwnerKind identifies what kind of entity a document is attached to
type OwnerKind string

const (
	OwnerUser          OwnerKind = "user"
	OwnerApplication   OwnerKind = "application"
	OwnerAgentContract OwnerKind = "agent_contract"
)

// OwnerContext ties a document to its owning entity
type OwnerContext struct {
	Kind     OwnerKind
	EntityID uint
}

// Key returns the wire form of the context, e.g. "application:42"
func (o OwnerContext) Key() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.EntityID)
}

// ParseOwnerContext parses a context key like "application:42"
func ParseOwnerContext(s string) (OwnerContext, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return OwnerContext{}, fmt.Errorf("%w: context must look like application:42", ErrValidation)
	}

	switch OwnerKind(kind) {
	case OwnerUser, OwnerApplication, OwnerAgentContract:
	default:
		return OwnerContext{}, fmt.Errorf("%w: unknown context kind '%s'", ErrValidation, kind)
	}

	entityID, err := strconv.ParseUint(id, 10, 32)
	if err != nil || entityID == 0 {
		return OwnerContext{}, fmt.Errorf("%w: invalid context entity id '%s'", ErrValidation, id)
	}

	return OwnerContext{Kind: OwnerKind(kind), EntityID: uint(entityID)}, nil
}

// Document represents a file attachment tracked by the backend
type Document struct {
	ID            uint           `json:"id"`
	Context       string         `json:"context"`
	DocType       string         `json:"doc_type"`
	Status        DocumentStatus `json:"status"`
	FileName      string         `json:"file_name"`
	Size          int64          `json:"size"`
	URL           string         `json:"url,omitempty"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	ReplacesID    *uint          `json:"replaces_id,omitempty"`
	ReplaceReason string         `json:"replace_reason,omitempty"`
}

// ApplicationStatus represents a financing request status
type ApplicationStatus string

const (
	ApplicationDraft         ApplicationStatus = "draft"
	ApplicationSubmitted     ApplicationStatus = "submitted"
	ApplicationBankReview    ApplicationStatus = "bank_review"
	ApplicationOfferReceived ApplicationStatus = "offer_received"
	ApplicationReturned      ApplicationStatus = "returned_for_revision"
	ApplicationRejected      ApplicationStatus = "rejected"
	ApplicationCancelled     ApplicationStatus = "cancelled"
)

// Application represents a financing request
type Application struct {
	ID               uint              `json:"id"`
	Status           ApplicationStatus `json:"status"`
	RequiredDocTypes []string          `json:"required_doc_types"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// OwnerContext returns the document context owned by this application
func (a *Application) OwnerContext() OwnerContext {
	return OwnerContext{Kind: OwnerApplication, EntityID: a.ID}
}

// ModerationStatus represents the review state of a chat message
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Message represents a per-application chat message
type Message struct {
	ID               uint             `json:"id"`
	ApplicationID    uint             `json:"application_id"`
	SenderUserID     uint             `json:"sender_user_id"`
	SenderRole       Role             `json:"sender_role"`
	Body             string           `json:"body"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	EditedAt         *time.Time       `json:"edited_at,omitempty"`
}
