package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	listenMinReconnect = 10 * time.Second
	listenMaxReconnect = time.Minute
	listenPingEvery    = 90 * time.Second
)

// Listener turns Postgres NOTIFY traffic on Channel into a stream of
// Events for the hub.
type Listener struct {
	pl     *pq.Listener
	logger zerolog.Logger
	events chan Event
}

// NewListener connects a dedicated listening connection to the database.
func NewListener(databaseURL string, logger zerolog.Logger) (*Listener, error) {
	l := &Listener{
		logger: logger,
		events: make(chan Event, 64),
	}
	l.pl = pq.NewListener(databaseURL, listenMinReconnect, listenMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error().Err(err).Int("event", int(ev)).Msg("feed: listener event")
		}
	})
	if err := l.pl.Listen(Channel); err != nil {
		_ = l.pl.Close()
		return nil, err
	}
	return l, nil
}

// Events returns the decoded event stream.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Run pumps notifications until ctx is done, pinging the connection
// periodically so dropped links reconnect.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.events)
	ticker := time.NewTicker(listenPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.pl.Ping(); err != nil {
				l.logger.Error().Err(err).Msg("feed: listener ping failed")
			}
		case n := <-l.pl.Notify:
			if n == nil {
				// nil notification signals a reconnect; subscribers
				// will be refreshed on the next matching insert.
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				l.logger.Error().Err(err).Str("payload", n.Extra).Msg("feed: bad notify payload")
				continue
			}
			select {
			case l.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close tears down the listening connection.
func (l *Listener) Close() error {
	return l.pl.Close()
}
