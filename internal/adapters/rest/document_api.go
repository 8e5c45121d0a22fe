package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fingate-portal/internal/core/domain"
)

// DocumentAPI binds the upload/document endpoints of the backend
type DocumentAPI struct {
	client *Client
}

// NewDocumentAPI creates a new document API binding
func NewDocumentAPI(client *Client) *DocumentAPI {
	return &DocumentAPI{client: client}
}

// uploadResponse is the backend reply to upload/replace calls
type uploadResponse struct {
	ID            uint       `json:"id"`
	URL           string     `json:"url"`
	FileName      string     `json:"file_name"`
	Size          int64      `json:"size"`
	Context       string     `json:"context"`
	DocType       string     `json:"doc_type"`
	IsTemporary   bool       `json:"is_temporary"`
	ExpiresAt     *time.Time `json:"expires_at"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	ReplacesID    *uint      `json:"replaces_id"`
	ReplaceReason string     `json:"replace_reason"`
}

// toDocument converts the wire reply into a domain document
func (r *uploadResponse) toDocument() *domain.Document {
	status := domain.DocumentConfirmed
	if r.IsTemporary {
		status = domain.DocumentTemporary
	}

	return &domain.Document{
		ID:            r.ID,
		Context:       r.Context,
		DocType:       r.DocType,
		Status:        status,
		FileName:      r.FileName,
		Size:          r.Size,
		URL:           r.URL,
		UploadedAt:    r.UploadedAt,
		ExpiresAt:     r.ExpiresAt,
		ReplacesID:    r.ReplacesID,
		ReplaceReason: r.ReplaceReason,
	}
}

// Upload stores a free-standing file and returns the temporary document
func (a *DocumentAPI) Upload(ctx context.Context, file io.Reader, fileName, contextKey, docType string) (*domain.Document, error) {
	var resp uploadResponse
	err := a.client.doMultipart(ctx, "/uploads",
		multipartFile{FieldName: "file", FileName: fileName, Reader: file},
		map[string]string{"context": contextKey, "doc_type": docType},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// UploadApplicationDocument stores a file scoped to an application
func (a *DocumentAPI) UploadApplicationDocument(ctx context.Context, applicationID uint, file io.Reader, fileName, docType string) (*domain.Document, error) {
	var resp uploadResponse
	err := a.client.doMultipart(ctx, fmt.Sprintf("/applications/%d/documents", applicationID),
		multipartFile{FieldName: "file", FileName: fileName, Reader: file},
		map[string]string{"doc_type": docType},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// Confirm transitions a temporary upload to confirmed
func (a *DocumentAPI) Confirm(ctx context.Context, documentID uint) error {
	return a.client.doJSON(ctx, http.MethodPost, fmt.Sprintf("/uploads/%d/confirm", documentID), nil, nil)
}

// Replace uploads a successor for a free-standing confirmed document
func (a *DocumentAPI) Replace(ctx context.Context, documentID uint, file io.Reader, fileName, reason string) (*domain.Document, error) {
	var resp uploadResponse
	err := a.client.doMultipart(ctx, fmt.Sprintf("/uploads/%d/replace", documentID),
		multipartFile{FieldName: "file", FileName: fileName, Reader: file},
		map[string]string{"reason": reason},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// ReplaceApplicationDocument uploads a successor for an application document
func (a *DocumentAPI) ReplaceApplicationDocument(ctx context.Context, documentID uint, file io.Reader, fileName, reason string) (*domain.Document, error) {
	var resp uploadResponse
	err := a.client.doMultipart(ctx, fmt.Sprintf("/documents/%d/replace", documentID),
		multipartFile{FieldName: "file", FileName: fileName, Reader: file},
		map[string]string{"reason": reason},
		&resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.toDocument(), nil
}

// Delete removes a free-standing confirmed document
func (a *DocumentAPI) Delete(ctx context.Context, documentID uint) error {
	return a.client.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/uploads/%d", documentID), nil, nil)
}

// DeleteApplicationDocument removes an application document
func (a *DocumentAPI) DeleteApplicationDocument(ctx context.Context, documentID uint) error {
	return a.client.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/documents/%d", documentID), nil, nil)
}

// Download streams a free-standing document
func (a *DocumentAPI) Download(ctx context.Context, documentID uint) (io.ReadCloser, string, error) {
	return a.client.doDownload(ctx, fmt.Sprintf("/uploads/%d/download", documentID))
}

// DownloadApplicationDocument streams an application document
func (a *DocumentAPI) DownloadApplicationDocument(ctx context.Context, documentID uint) (io.ReadCloser, string, error) {
	return a.client.doDownload(ctx, fmt.Sprintf("/documents/%d/download", documentID))
}

// List returns documents for a context key
func (a *DocumentAPI) List(ctx context.Context, contextKey string, includeArchived bool) ([]*domain.Document, error) {
	query := url.Values{}
	query.Set("context", contextKey)
	if includeArchived {
		query.Set("include_archived", "true")
	}

	var docs []*domain.Document
	if err := a.client.doJSON(ctx, http.MethodGet, "/uploads?"+query.Encode(), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ListApplicationDocuments returns documents attached to an application
func (a *DocumentAPI) ListApplicationDocuments(ctx context.Context, applicationID uint, includeArchived bool) ([]*domain.Document, error) {
	path := fmt.Sprintf("/applications/%d/documents", applicationID)
	if includeArchived {
		path += "?include_archived=true"
	}

	var docs []*domain.Document
	if err := a.client.doJSON(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
