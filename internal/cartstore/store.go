// Package cartstore is the client-held cart: authoritative for the active
// session, mirrored to the server as a durability backstop. It owns all cart
// state behind one mutation API; persistence and server sync are injected
// ports so the storefront shell and the tests can substitute their own.
package cartstore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const defaultNoteTTL = 1200 * time.Millisecond

// Product is the display-level view of a catalog entry the client renders a
// cart line with. Stock, when known, feeds the advisory ceiling check only;
// the authoritative check happens again at checkout.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    float64
	Image    string
	Stock    *int
}

type Item struct {
	Product Product
	Qty     int
}

// Persistence survives restarts on one device. It holds the items and the
// last-synced identity marker.
type Persistence interface {
	Load() (items []Item, lastSyncedUser string, err error)
	SaveItems(items []Item) error
	SaveLastSyncedUser(user string) error
}

// Syncer pushes single-line updates to the server cart. Calls are
// best-effort: failures never roll back a local mutation.
type Syncer interface {
	UpdateItem(ctx context.Context, ref string, quantity int) error
	Clear(ctx context.Context) error
}

// SyncResult reports the outcome of one background push. Err is nil on
// success. Consumers are optional; results are dropped when nobody listens.
type SyncResult struct {
	Op  string
	Ref string
	Err error
}

// pushTask is one queued server push. Tasks drain in enqueue order so an
// earlier absolute quantity can never overwrite a later one.
type pushTask struct {
	op  string
	ref string
	qty int
}

type Store struct {
	mu             sync.Mutex
	items          []Item
	note           string
	noteSeq        int
	ready          bool
	userEmail      string
	lastSyncedUser string
	synced         bool

	persist Persistence
	syncer  Syncer
	results chan SyncResult
	noteTTL time.Duration

	queueMu sync.Mutex
	queue   []pushTask
	wake    chan struct{}
	pushes  sync.WaitGroup
}

func NewStore(persist Persistence, syncer Syncer) *Store {
	s := &Store{
		persist: persist,
		syncer:  syncer,
		results: make(chan SyncResult, 16),
		noteTTL: defaultNoteTTL,
		wake:    make(chan struct{}, 1),
	}
	go s.runPusher()
	return s
}

// Load hydrates the store from device persistence and flips the ready flag.
// Reconciliation waits for this.
func (s *Store) Load() error {
	items, lastSyncedUser, err := s.persist.Load()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.lastSyncedUser = lastSyncedUser
	s.ready = true
	return nil
}

func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// SetUserEmail records the current identity. Clearing it (logout) re-arms
// reconciliation for the next login.
func (s *Store) SetUserEmail(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userEmail = email
	if email == "" {
		s.synced = false
	}
}

// Items returns a copy of the current lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyItems(s.items)
}

// Note returns the transient user-facing note, or "" when expired.
func (s *Store) Note() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note
}

func (s *Store) ClearNote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note = ""
	s.noteSeq++
}

// SyncResults exposes background push outcomes for observers; the channel
// never blocks mutations.
func (s *Store) SyncResults() <-chan SyncResult {
	return s.results
}

// AddItem adds one unit of the product. When a stock ceiling is known and
// would be exceeded, the mutation is rejected and only the note is set.
func (s *Store) AddItem(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentQty := 0
	for _, item := range s.items {
		if item.Product.ID == p.ID {
			currentQty = item.Qty
			break
		}
	}

	if p.Stock != nil && currentQty+1 > *p.Stock {
		s.bumpNote(fmt.Sprintf("Stock limit reached! (%d max)", *p.Stock))
		return
	}

	newQty := currentQty + 1
	if currentQty == 0 {
		s.items = append(s.items, Item{Product: p, Qty: 1})
	} else {
		for i := range s.items {
			if s.items[i].Product.ID == p.ID {
				s.items[i].Qty = newQty
			}
		}
	}

	s.bumpNote("Added: " + p.Name)
	s.afterMutation(p.ID, newQty)
}

// IncQty increments a line, subject to the advisory stock ceiling.
func (s *Store) IncQty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID != id {
			continue
		}
		target := &s.items[i]
		if target.Product.Stock != nil && target.Qty+1 > *target.Product.Stock {
			s.bumpNote("Stock limit reached!")
			return
		}
		target.Qty++
		s.bumpNote(fmt.Sprintf("Quantity: %s +1", target.Product.Name))
		s.afterMutation(id, target.Qty)
		return
	}
}

// DecQty decrements a line; at quantity 1 the line is removed entirely so a
// zero-quantity line never persists.
func (s *Store) DecQty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID != id {
			continue
		}
		newQty := s.items[i].Qty - 1
		name := s.items[i].Product.Name
		if newQty < 1 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Qty = newQty
		}
		s.bumpNote(fmt.Sprintf("Quantity: %s -1", name))
		s.afterMutation(id, newQty)
		return
	}
}

func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Product.ID != id {
			continue
		}
		name := s.items[i].Product.Name
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.bumpNote("Removed: " + name)
		s.afterMutation(id, 0)
		return
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.bumpNote("Cart cleared")
	s.saveItemsLocked()
	if s.userEmail != "" {
		s.enqueuePush(pushTask{op: "clear"})
	}
}

// Flush waits until the push queue has drained. Test helper and shutdown
// hook.
func (s *Store) Flush() {
	s.pushes.Wait()
}

// bumpNote sets the note and schedules its expiry; the next mutation or the
// timeout clears it, whichever comes first. Caller holds the lock.
func (s *Store) bumpNote(msg string) {
	s.note = msg
	s.noteSeq++
	seq := s.noteSeq
	time.AfterFunc(s.noteTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.noteSeq == seq {
			s.note = ""
		}
	})
}

// afterMutation persists locally and, when an identity is known, queues the
// new quantity for the background pusher. Caller holds the lock.
func (s *Store) afterMutation(ref string, quantity int) {
	s.saveItemsLocked()
	if s.userEmail == "" {
		return
	}
	s.enqueuePush(pushTask{op: "update", ref: ref, qty: quantity})
}

func (s *Store) enqueuePush(task pushTask) {
	s.pushes.Add(1)
	s.queueMu.Lock()
	s.queue = append(s.queue, task)
	s.queueMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// runPusher is the single worker that drains the push queue. Pushes carry
// absolute quantities, so they must reach the server in mutation order: a
// stale quantity arriving after a removal would resurrect the line until the
// next login reconciliation.
func (s *Store) runPusher() {
	for range s.wake {
		for {
			s.queueMu.Lock()
			if len(s.queue) == 0 {
				s.queueMu.Unlock()
				break
			}
			task := s.queue[0]
			s.queue = s.queue[1:]
			s.queueMu.Unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			var err error
			if task.op == "clear" {
				err = s.syncer.Clear(ctx)
			} else {
				err = s.syncer.UpdateItem(ctx, task.ref, task.qty)
			}
			cancel()
			if err != nil {
				log.Printf("[CARTSTORE] [WARN] failed to sync %s %q: %v", task.op, task.ref, err)
			}
			s.report(SyncResult{Op: task.op, Ref: task.ref, Err: err})
			s.pushes.Done()
		}
	}
}

func (s *Store) saveItemsLocked() {
	if err := s.persist.SaveItems(copyItems(s.items)); err != nil {
		log.Println("[CARTSTORE] [WARN] local persistence failed:", err)
	}
}

func (s *Store) report(result SyncResult) {
	select {
	case s.results <- result:
	default:
	}
}

func copyItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
