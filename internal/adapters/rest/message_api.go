package rest

import (
	"context"
	"fmt"
	"net/http"

	"fingate-portal/internal/core/domain"
)

// MessageAPI binds the per-application chat endpoints of the backend
type MessageAPI struct {
	client *Client
}

// NewMessageAPI creates a new message API binding
func NewMessageAPI(client *Client) *MessageAPI {
	return &MessageAPI{client: client}
}

// sendMessageRequest is the wire form of a new message
type sendMessageRequest struct {
	ApplicationID uint   `json:"application_id"`
	Body          string `json:"body"`
}

// editMessageRequest is the wire form of a message edit
type editMessageRequest struct {
	Body string `json:"body"`
}

// List returns all messages of an application visible to the caller
func (a *MessageAPI) List(ctx context.Context, applicationID uint) ([]*domain.Message, error) {
	var messages []*domain.Message
	path := fmt.Sprintf("/applications/%d/messages", applicationID)
	if err := a.client.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send posts a new message; the moderation status is decided server-side
func (a *MessageAPI) Send(ctx context.Context, applicationID uint, body string) (*domain.Message, error) {
	var message domain.Message
	in := sendMessageRequest{ApplicationID: applicationID, Body: body}
	if err := a.client.doJSON(ctx, http.MethodPost, "/messages", in, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// Edit updates the body of the caller's own message
func (a *MessageAPI) Edit(ctx context.Context, messageID uint, body string) (*domain.Message, error) {
	var message domain.Message
	in := editMessageRequest{Body: body}
	path := fmt.Sprintf("/messages/%d", messageID)
	if err := a.client.doJSON(ctx, http.MethodPatch, path, in, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// Delete removes the caller's own message
func (a *MessageAPI) Delete(ctx context.Context, messageID uint) error {
	return a.client.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/messages/%d", messageID), nil, nil)
}

// Approve marks a pending message as approved (admin-only)
func (a *MessageAPI) Approve(ctx context.Context, messageID uint) error {
	return a.client.doJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/chat/messages/%d/approve", messageID), nil, nil)
}

// Reject marks a pending message as rejected (admin-only)
func (a *MessageAPI) Reject(ctx context.Context, messageID uint) error {
	return a.client.doJSON(ctx, http.MethodPost, fmt.Sprintf("/admin/chat/messages/%d/reject", messageID), nil, nil)
}
