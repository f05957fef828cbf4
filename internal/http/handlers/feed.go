package handlers

import (
	"encoding/json"
	"net/http"

	"polylingo/internal/feed"
)

// LessonFeed streams lesson snapshots for one partition over SSE.
func (a *App) LessonFeed(w http.ResponseWriter, r *http.Request) {
	a.streamFeed(w, r, feed.KindLessons)
}

// TranslationFeed streams translation snapshots for one partition over SSE.
func (a *App) TranslationFeed(w http.ResponseWriter, r *http.Request) {
	a.streamFeed(w, r, feed.KindTranslations)
}

// streamFeed subscribes the connection to its (user, language) partition and
// writes one SSE event per snapshot. The first event carries the current
// state; later events arrive as inserts land. Closing the connection cancels
// the subscription.
func (a *App) streamFeed(w http.ResponseWriter, r *http.Request, kind feed.Kind) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "language required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	key := feed.Key{Kind: kind, UserID: userID, Language: language}
	snapshots, cancel, err := a.Feed.Subscribe(r.Context(), key)
	if err != nil {
		a.Logger.Error().Err(err).
			Str("kind", string(kind)).
			Str("user_id", userID).
			Msg("feed subscribe failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to open feed")
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-snapshots:
			if !open {
				return
			}
			if err := writeSSE(w, "snapshot", snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
