package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"menulens/internal/domain"
	"menulens/internal/progress"

	"github.com/go-chi/chi/v5"
)

// sseHeartbeat keeps idle event streams alive through proxies.
const sseHeartbeat = 15 * time.Second

// MenusProgress returns the tracker snapshot for a menu task. Tasks
// evicted from the tracker fall back to the persisted menu status.
func (a *App) MenusProgress(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menu_id")
	if menuID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "menu_id required")
		return
	}

	if st, ok := a.Tracker.Get(menuID); ok {
		a.json(w, http.StatusOK, st)
		return
	}

	menu, err := a.loadMenu(r.Context(), menuID)
	if err != nil {
		a.error(w, r, http.StatusNotFound, "not_found", "task not found")
		return
	}
	a.json(w, http.StatusOK, stateFromMenu(menu))
}

// MenusEvents streams tracker states for a menu task as Server-Sent
// Events. The stream ends after the terminal state is sent.
func (a *App) MenusEvents(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menu_id")
	if menuID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "menu_id required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, r, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	if _, tracked := a.Tracker.Get(menuID); !tracked {
		menu, err := a.loadMenu(r.Context(), menuID)
		if err != nil {
			a.error(w, r, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeSSEHeaders(w)
		writeSSEEvent(w, stateFromMenu(menu))
		flusher.Flush()
		return
	}

	ch, cancel := a.Tracker.Subscribe(menuID)
	defer cancel()

	writeSSEHeaders(w)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case st, open := <-ch:
			if !open {
				return
			}
			writeSSEEvent(w, st)
			flusher.Flush()
			if st.Status != progress.StatusProcessing {
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSEEvent(w http.ResponseWriter, st progress.State) {
	payload, err := json.Marshal(st)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
}

// stateFromMenu synthesizes a terminal tracker state from a persisted
// menu row, for tasks already evicted from memory.
func stateFromMenu(menu domain.Menu) progress.State {
	st := progress.State{
		TaskID:    menu.ID,
		Stage:     string(menu.Status),
		ItemCount: menu.ItemCount,
		StartedAt: menu.CreatedAt,
		UpdatedAt: menu.CreatedAt,
		Error:     menu.Error,
	}
	if menu.CompletedAt != nil {
		st.UpdatedAt = *menu.CompletedAt
	}
	switch menu.Status {
	case domain.MenuStatusCompleted:
		st.Status = progress.StatusCompleted
		st.Percent = 100
		st.Message = "Completed"
	case domain.MenuStatusFailed:
		st.Status = progress.StatusFailed
		st.Message = "Failed"
	default:
		st.Status = progress.StatusProcessing
		st.Message = "Processing"
	}
	return st
}
