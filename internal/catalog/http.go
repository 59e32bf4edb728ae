package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"MiniCatalog/pkg/kit"
	"MiniCatalog/pkg/messaging"
)

const readyTimeout = 1 * time.Second

type Server struct {
	Store  *Store
	Log    *zap.Logger
	Events messaging.Publisher
}

type readyResponse struct {
	Snapshot string `json:"snapshot"`
	Loaded   int    `json:"loaded"`
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.log().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}

	st := s.Store.Status()
	kit.WriteJSON(w, http.StatusOK, readyResponse{Snapshot: st.State.String(), Loaded: st.Records})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Store.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Store.Get(id)
	if err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p Product
	if err := kit.DecodeJSON(w, r, &p); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	created, err := s.Store.Add(r.Context(), p)
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}

	s.publish(r.Context(), ProductEvent{Type: EventCreated, ID: created.ID, Product: &created})
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var f Fields
	if err := kit.DecodeJSON(w, r, &f); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if f == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "fields object required", nil)
		return
	}

	if err := s.Store.Update(r.Context(), id, f); err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}

	ev := ProductEvent{Type: EventUpdated, ID: id}
	if p, err := s.Store.Get(id); err == nil {
		ev.Product = &p
	}
	s.publish(r.Context(), ev)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err, id)
		return
	}

	s.publish(r.Context(), ProductEvent{Type: EventDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, id string) {
	var dup *DuplicateCodeError
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
	case errors.As(err, &dup):
		kit.WriteError(w, r, http.StatusConflict, "code already in use", map[string]any{"code": dup.Code})
	case errors.Is(err, ErrInvalidField):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid field", map[string]any{"cause": err.Error()})
	default:
		s.log().Error("catalog store failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) publish(ctx context.Context, ev ProductEvent) {
	if s.Events == nil {
		return
	}
	ev.At = time.Now().UTC()
	if p, ok := kit.PrincipalFromContext(ctx); ok {
		ev.Actor = p.Subject
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.log().Warn("publish product event failed",
			zap.Error(err),
			zap.String("event", ev.Subject()),
			zap.String("id", ev.ID),
		)
	}
}
