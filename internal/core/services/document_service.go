package services

import (
	"context"
	"fmt"
	"io"

	"fingate-portal/internal/adapters/rest"
	"fingate-portal/internal/core/domain"
)

// Document service errors
var (
	ErrEmptyFile            = fmt.Errorf("%w: upload file is required", domain.ErrValidation)
	ErrEmptyFileName        = fmt.Errorf("%w: file name is required", domain.ErrValidation)
	ErrDocumentNotConfirmed = fmt.Errorf("%w: document is not in confirmed status", domain.ErrConflict)
)

// DocumentService owns the temporary→confirmed→archived document lifecycle.
// The backend is the source of truth; the store only caches the last list per
// owner context and every mutation invalidates the affected key.
type DocumentService struct {
	api   *rest.DocumentAPI
	store *DocumentStore
}

// NewDocumentService creates a new document service
func NewDocumentService(api *rest.DocumentAPI, store *DocumentStore) *DocumentService {
	return &DocumentService{api: api, store: store}
}

// UploadInput represents upload input
type UploadInput struct {
	File     io.Reader
	FileName string
	Owner    domain.OwnerContext
	DocType  string
}

// Upload stores the file server-side and returns a temporary document.
// The caller must Confirm promptly: an unconfirmed upload is discarded by the
// backend after its TTL and must never be treated as durable.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	if input.File == nil {
		return nil, ErrEmptyFile
	}
	if input.FileName == "" {
		return nil, ErrEmptyFileName
	}

	var doc *domain.Document
	var err error
	if input.Owner.Kind == domain.OwnerApplication {
		doc, err = s.api.UploadApplicationDocument(ctx, input.Owner.EntityID, input.File, input.FileName, input.DocType)
	} else {
		doc, err = s.api.Upload(ctx, input.File, input.FileName, input.Owner.Key(), input.DocType)
	}
	if err != nil {
		return nil, err
	}

	s.store.Invalidate(input.Owner.Key())
	return doc, nil
}

// Confirm transitions a temporary document to confirmed. ErrNotFound means
// the upload expired before the call arrived; the user must re-upload.
func (s *DocumentService) Confirm(ctx context.Context, documentID uint, owner domain.OwnerContext) error {
	if err := s.api.Confirm(ctx, documentID); err != nil {
		return fmt.Errorf("confirm document %d: %w", documentID, err)
	}

	s.store.Invalidate(owner.Key())
	return nil
}

// ReplaceInput represents replace input
type ReplaceInput struct {
	DocumentID uint
	Owner      domain.OwnerContext
	File       io.Reader
	FileName   string
	Reason     string
}

// Replace uploads a successor, confirms it and archives the target in one
// backend call. Only a currently confirmed document can be replaced; a
// concurrent replace from another tab surfaces as ErrConflict and is a
// legitimate retry-after-refresh outcome, not a client bug.
func (s *DocumentService) Replace(ctx context.Context, input ReplaceInput) (*domain.Document, error) {
	if input.File == nil {
		return nil, ErrEmptyFile
	}
	if input.FileName == "" {
		return nil, ErrEmptyFileName
	}

	// Fail fast on a target the last refresh already showed as not confirmed
	if known, ok := s.store.Find(input.Owner.Key(), input.DocumentID); ok && known.Status != domain.DocumentConfirmed {
		return nil, fmt.Errorf("replace document %d: %w", input.DocumentID, ErrDocumentNotConfirmed)
	}

	var doc *domain.Document
	var err error
	if input.Owner.Kind == domain.OwnerApplication {
		doc, err = s.api.ReplaceApplicationDocument(ctx, input.DocumentID, input.File, input.FileName, input.Reason)
	} else {
		doc, err = s.api.Replace(ctx, input.DocumentID, input.File, input.FileName, input.Reason)
	}
	if err != nil {
		return nil, fmt.Errorf("replace document %d: %w", input.DocumentID, err)
	}

	s.store.Invalidate(input.Owner.Key())
	return doc, nil
}

// Remove deletes a confirmed document. Temporary documents self-expire and
// archived ones are retained for audit, so neither can be deleted here.
func (s *DocumentService) Remove(ctx context.Context, documentID uint, owner domain.OwnerContext) error {
	if known, ok := s.store.Find(owner.Key(), documentID); ok && known.Status != domain.DocumentConfirmed {
		return fmt.Errorf("remove document %d: %w", documentID, ErrDocumentNotConfirmed)
	}

	var err error
	if owner.Kind == domain.OwnerApplication {
		err = s.api.DeleteApplicationDocument(ctx, documentID)
	} else {
		err = s.api.Delete(ctx, documentID)
	}
	if err != nil {
		return fmt.Errorf("remove document %d: %w", documentID, err)
	}

	s.store.Invalidate(owner.Key())
	return nil
}

// Download streams a confirmed or archived document. The caller must close
// the returned reader; the second return is the suggested file name.
func (s *DocumentService) Download(ctx context.Context, documentID uint, owner domain.OwnerContext) (io.ReadCloser, string, error) {
	if owner.Kind == domain.OwnerApplication {
		return s.api.DownloadApplicationDocument(ctx, documentID)
	}
	return s.api.Download(ctx, documentID)
}

// List returns the current confirmed documents for an owner context, serving
// the cached list when no mutation invalidated it. Archived history is always
// fetched fresh and never cached.
func (s *DocumentService) List(ctx context.Context, owner domain.OwnerContext, includeArchived bool) ([]*domain.Document, error) {
	if !includeArchived {
		if docs, ok := s.store.Get(owner.Key()); ok {
			return docs, nil
		}
	}

	docs, err := s.fetch(ctx, owner, includeArchived)
	if err != nil {
		return nil, err
	}

	if !includeArchived {
		s.store.Set(owner.Key(), docs)
	}
	return docs, nil
}

// Refresh re-fetches the confirmed list for the poller. A response arriving
// after the subscription was stopped is discarded, not applied.
func (s *DocumentService) Refresh(ctx context.Context, owner domain.OwnerContext) error {
	docs, err := s.fetch(ctx, owner, false)
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.store.Set(owner.Key(), docs)
	return nil
}

// fetch dispatches to the application-scoped or free-standing endpoint family
func (s *DocumentService) fetch(ctx context.Context, owner domain.OwnerContext, includeArchived bool) ([]*domain.Document, error) {
	if owner.Kind == domain.OwnerApplication {
		return s.api.ListApplicationDocuments(ctx, owner.EntityID, includeArchived)
	}
	return s.api.List(ctx, owner.Key(), includeArchived)
}
