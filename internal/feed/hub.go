package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const loadTimeout = 10 * time.Second

// Hub fans record-insert events out to partition subscribers. Each
// subscriber gets the current snapshot immediately after subscribing and a
// fresh snapshot after every insert into its partition. Inserts into other
// partitions are never delivered.
type Hub struct {
	loader Loader
	logger zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[Key]map[int]chan Snapshot
}

// NewHub constructs a hub over the given snapshot loader.
func NewHub(loader Loader, logger zerolog.Logger) *Hub {
	return &Hub{
		loader: loader,
		logger: logger,
		subs:   make(map[Key]map[int]chan Snapshot),
	}
}

// Subscribe registers a consumer for one partition and returns a snapshot
// channel plus a cancel function. The cancel function must be called when
// the consumer is torn down or when its partition key changes; a consumer
// switching keys cancels first and subscribes again so a stale subscription
// never fires into new state. The channel is closed by cancel.
//
// The consumer is registered before the initial load runs, so an insert
// committed while the load is in flight is dispatched to it rather than
// silently missed.
func (h *Hub) Subscribe(ctx context.Context, key Key) (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan Snapshot)
	}
	h.subs[key][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.subs, key)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	snap, err := h.load(ctx, key)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	// A dispatch that raced the initial load has already queued a snapshot
	// taken after its insert, which is at least as fresh as this one. Only
	// fill an empty channel; never replace.
	h.mu.Lock()
	if set, ok := h.subs[key]; ok {
		if _, live := set[id]; live {
			select {
			case ch <- snap:
			default:
			}
		}
	}
	h.mu.Unlock()

	return ch, cancel, nil
}

// Dispatch reloads the partition named by the event and delivers the new
// snapshot to its subscribers. Snapshots coalesce: a slow consumer only
// ever sees the latest state, never a backlog.
func (h *Hub) Dispatch(ctx context.Context, ev Event) {
	key := Key{Kind: ev.Kind, UserID: ev.UserID, Language: ev.Language}

	h.mu.Lock()
	n := len(h.subs[key])
	h.mu.Unlock()
	if n == 0 {
		return
	}

	snap, err := h.load(ctx, key)
	if err != nil {
		h.logger.Error().Err(err).
			Str("kind", string(ev.Kind)).
			Str("user_id", ev.UserID).
			Str("language", ev.Language).
			Msg("feed: reload partition failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[key] {
		select {
		case ch <- snap:
		default:
			// Drop the stale pending snapshot, keep the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Run consumes events from src until ctx is done.
func (h *Hub) Run(ctx context.Context, src <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				return
			}
			h.Dispatch(ctx, ev)
		}
	}
}

func (h *Hub) load(ctx context.Context, key Key) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	return h.loader.Load(ctx, key)
}
