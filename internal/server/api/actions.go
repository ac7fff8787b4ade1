package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/airmouse/internal/store"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

// ActionLogHandler lists fired pointer actions.
type ActionLogHandler struct {
	store *store.Store
}

// NewActionLogHandler creates a new ActionLogHandler with the given store.
func NewActionLogHandler(s *store.Store) *ActionLogHandler {
	return &ActionLogHandler{store: s}
}

type actionResponse struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Gesture   string  `json:"gesture"`
	Action    string  `json:"action"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	CreatedAt string  `json:"created_at"`
}

type listActionsResponse struct {
	Actions []actionResponse `json:"actions"`
}

// ServeHTTP handles GET /api/actions?limit=N&session=ID.
func (h *ActionLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxListLimit)
	}

	events, err := h.store.Actions().List(r.URL.Query().Get("session"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}

	response := listActionsResponse{
		Actions: make([]actionResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Actions = append(response.Actions, actionResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			Gesture:   e.Gesture,
			Action:    e.Action,
			X:         e.X,
			Y:         e.Y,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
