package http

import (
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

// GET /events?after=<seq>&limit=<n>
//
// Pull feed over the event log for downstream sync.
func EventsHandler(repo *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		after, err := strconv.ParseInt(q.Get("after"), 10, 64)
		if err != nil && q.Get("after") != "" {
			http.Error(w, "after must be an integer", http.StatusBadRequest)
			return
		}
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil && q.Get("limit") != "" {
			http.Error(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		events, err := repo.Since(r.Context(), after, min(limit, 1000))
		if err != nil {
			fail(w, err)
			return
		}
		if events == nil {
			events = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}
