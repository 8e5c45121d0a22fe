package services

import (
	"sync"

	"fingate-portal/internal/core/domain"
)

// DocumentStore holds the last fetched document list per owner-context key.
// Only DocumentService writes to it; everything else reads snapshots.
type DocumentStore struct {
	mu        sync.RWMutex
	byContext map[string][]*domain.Document
}

// NewDocumentStore creates an empty document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{byContext: make(map[string][]*domain.Document)}
}

// Set replaces the cached list for a context key
func (s *DocumentStore) Set(key string, docs []*domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byContext[key] = append([]*domain.Document(nil), docs...)
}

// Get returns a snapshot of the cached list and whether the key is cached
func (s *DocumentStore) Get(key string) ([]*domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.byContext[key]
	if !ok {
		return nil, false
	}
	return append([]*domain.Document(nil), docs...), true
}

// Find looks up one cached document by id within a context key
func (s *DocumentStore) Find(key string, documentID uint) (*domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.byContext[key] {
		if doc.ID == documentID {
			copied := *doc
			return &copied, true
		}
	}
	return nil, false
}

// Invalidate drops the cached list for a context key
func (s *DocumentStore) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byContext, key)
}

// MessageStore holds the last fetched message list per application.
// Only MessageService writes to it; everything else reads snapshots.
type MessageStore struct {
	mu            sync.RWMutex
	byApplication map[uint][]*domain.Message
}

// NewMessageStore creates an empty message store
func NewMessageStore() *MessageStore {
	return &MessageStore{byApplication: make(map[uint][]*domain.Message)}
}

// Set replaces the cached list for an application
func (s *MessageStore) Set(applicationID uint, messages []*domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byApplication[applicationID] = append([]*domain.Message(nil), messages...)
}

// Get returns a snapshot of the cached list and whether it is cached
func (s *MessageStore) Get(applicationID uint) ([]*domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages, ok := s.byApplication[applicationID]
	if !ok {
		return nil, false
	}
	return append([]*domain.Message(nil), messages...), true
}

// Find looks up one cached message by id within an application
func (s *MessageStore) Find(applicationID, messageID uint) (*domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, message := range s.byApplication[applicationID] {
		if message.ID == messageID {
			copied := *message
			return &copied, true
		}
	}
	return nil, false
}

// Invalidate drops the cached list for an application
func (s *MessageStore) Invalidate(applicationID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byApplication, applicationID)
}
