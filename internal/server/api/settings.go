package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/ayusman/airmouse/internal/config"
	"github.com/ayusman/airmouse/internal/store"
)

// TunablesKey is the settings row holding the persisted tunables.
const TunablesKey = "tunables"

// LoadTunables returns the persisted tunables layered over fallback.
func LoadTunables(s *store.Store, fallback config.Tunables) (config.Tunables, error) {
	raw, err := s.Settings().Get(TunablesKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fallback, nil
		}
		return fallback, err
	}

	t := fallback
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return fallback, fmt.Errorf("stored tunables are corrupt: %w", err)
	}
	if err := t.Validate(); err != nil {
		return fallback, fmt.Errorf("stored tunables are invalid: %w", err)
	}
	return t, nil
}

// SettingsHandler reads and updates the runtime tunables.
type SettingsHandler struct {
	store   *store.Store
	apply   func(config.Tunables)
	mu      sync.Mutex
	current config.Tunables
}

// NewSettingsHandler serves current and calls apply after each accepted update.
func NewSettingsHandler(s *store.Store, current config.Tunables, apply func(config.Tunables)) *SettingsHandler {
	return &SettingsHandler{store: s, current: current, apply: apply}
}

// ServeHTTP handles GET and PUT /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.mu.Lock()
		current := h.current
		h.mu.Unlock()
		writeJSON(w, http.StatusOK, current)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies a partial update: fields absent from the body keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.current
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := json.Marshal(next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode settings")
		return
	}
	if err := h.store.Settings().Set(TunablesKey, string(raw)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	h.current = next
	if h.apply != nil {
		h.apply(next)
	}

	writeJSON(w, http.StatusOK, next)
}
