// Package web serves the history store and a follow-along websocket feed
// over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parlo/history"
	"parlo/player"
)

type Handler struct {
	store  *history.Store
	hub    *Hub
	logger *log.Logger
}

func NewHandler(store *history.Store, logger *log.Logger) *Handler {
	return &Handler{
		store:  store,
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Hub exposes the follow-along broadcaster so a playback session can be
// wired to it.
func (h *Handler) Hub() *Hub { return h.hub }

// BindPlayer routes the controller's active-segment changes onto the
// follow-along feed.
func (h *Handler) BindPlayer(ctrl *player.Controller) {
	ctrl.SetSegmentListener(h.hub.Listener())
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/history", h.handleList)
	r.Get("/api/history/{id}", h.handleGet)
	r.Delete("/api/history/{id}", h.handleDelete)
	r.Get("/api/live", h.hub.handleWS)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list history", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get history item", "id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete history item", "id", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		v = []struct{}{}
	}
	json.NewEncoder(w).Encode(v)
}

// Serve runs the HTTP server until the context is canceled. When a
// controller is given, its playback drives the /api/live feed.
func Serve(ctx context.Context, port int, store *history.Store, ctrl *player.Controller, logger *log.Logger) error {
	handler := NewHandler(store, logger)
	if ctrl != nil {
		handler.BindPlayer(ctrl)
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Routes(),
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
