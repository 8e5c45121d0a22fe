package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Poll service errors
var (
	ErrDuplicateSubscription = errors.New("subscription key already active")
	ErrInvalidInterval       = errors.New("poll interval must be positive")
)

// RefreshFunc fetches one resource and commits it to its state store. It must
// check ctx before committing so a late response is discarded after Stop.
type RefreshFunc func(ctx context.Context) error

// PollService simulates server push by periodic refresh. One cron drives all
// subscriptions; each subscription refreshes once immediately and then on
// every tick, with at most one refresh in flight per resource key.
type PollService struct {
	cron *cron.Cron
	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewPollService creates a stopped poll service
func NewPollService() *PollService {
	return &PollService{
		cron: cron.New(),
		subs: make(map[string]*Subscription),
	}
}

// Start launches the timer loop
func (s *PollService) Start() {
	s.cron.Start()
	log.Println("🚀 PollService started")
}

// Stop tears down all subscriptions and the timer loop
func (s *PollService) Stop() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}

	<-s.cron.Stop().Done()
	log.Println("🛑 PollService stopped")
}

// Subscribe registers a refresh for a resource key. The first refresh fires
// immediately, subsequent ones every interval until Stop is called on the
// returned subscription.
func (s *PollService) Subscribe(key string, interval time.Duration, refresh RefreshFunc) (*Subscription, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubscription, key)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		key:     key,
		service: s,
		refresh: refresh,
		ctx:     ctx,
		cancel:  cancel,
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), sub.run)
	if err != nil {
		cancel()
		return nil, err
	}
	sub.entryID = entryID
	s.subs[key] = sub

	// Refresh once on subscribe without waiting for the first tick
	go sub.run()

	return sub, nil
}

// remove detaches a stopped subscription from the timer loop
func (s *PollService) remove(sub *Subscription) {
	s.cron.Remove(sub.entryID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.subs[sub.key]; ok && current == sub {
		delete(s.subs, sub.key)
	}
}

// Subscription is one periodically refreshed resource
type Subscription struct {
	key      string
	service  *PollService
	refresh  RefreshFunc
	ctx      context.Context
	cancel   context.CancelFunc
	entryID  cron.EntryID
	inFlight int32
	stopOnce sync.Once
}

// Key returns the resource key of this subscription
func (sub *Subscription) Key() string {
	return sub.key
}

// Stop ends the subscription. Idempotent; cancels the refresh context so a
// response still in flight is discarded instead of applied to stopped state.
func (sub *Subscription) Stop() {
	sub.stopOnce.Do(func() {
		sub.cancel()
		sub.service.remove(sub)
	})
}

// run executes one refresh. A tick arriving while a refresh is still awaiting
// its response is skipped, never queued.
func (sub *Subscription) run() {
	if !atomic.CompareAndSwapInt32(&sub.inFlight, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&sub.inFlight, 0)

	if sub.ctx.Err() != nil {
		return
	}

	if err := sub.refresh(sub.ctx); err != nil && sub.ctx.Err() == nil {
		// Background refresh failures are non-fatal: log and wait for the next tick
		log.Printf("⚠️ Poll refresh failed [%s]: %v", sub.key, err)
	}
}
