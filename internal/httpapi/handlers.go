package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adityasinghania3802/pub-sub-plivo/pkg/broker"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "BAD_REQUEST", "message": message})
}

func (a *API) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if !topicNameRE.MatchString(req.Name) {
		writeBadRequest(w, "topic name must match ^[A-Za-z0-9._-]{1,200}$")
		return
	}

	if err := a.reg.CreateTopic(req.Name); err != nil {
		if errors.Is(err, broker.ErrTopicExists) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "conflict", "topic": req.Name})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "INTERNAL", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created", "topic": req.Name})
}

func (a *API) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !topicNameRE.MatchString(name) {
		writeBadRequest(w, "topic name must match ^[A-Za-z0-9._-]{1,200}$")
		return
	}

	if err := a.reg.DeleteTopic(name); err != nil {
		if errors.Is(err, broker.ErrTopicNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "topic": name})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "INTERNAL", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "topic": name})
}

func (a *API) handleListTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": a.reg.ListTopics()})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.reg.Health())
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": a.reg.Stats()})
}
