package transport

import (
	"context"
	"net/http"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/logger"
	"storefront-catalog/internal/middleware"
	"storefront-catalog/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NavigateRequest is an address bar change made outside the page
type NavigateRequest struct {
	Query string `json:"query"`
}

// PageRequest selects a result page
type PageRequest struct {
	Page int `json:"page" validate:"required,min=1"`
}

// SortRequest selects an ordering
type SortRequest struct {
	Sort string `json:"sort" validate:"required,oneof=relevance price-asc price-desc rating-asc rating-desc newest newest-asc newest-desc"`
}

// DraftRequest replaces the filter fields of the draft. The drawer state is
// left alone. Price bounds are not checked against each other here; an
// inverted range is dropped when the draft is applied.
type DraftRequest struct {
	Search      string   `json:"search" validate:"max=200"`
	CategoryIDs []int    `json:"categoryIds" validate:"omitempty,max=100,dive,gt=0"`
	BrandIDs    []int    `json:"brandIds" validate:"omitempty,max=100,dive,gt=0"`
	SkinTypeID  *int     `json:"skinTypeId" validate:"omitempty,gt=0"`
	MinPrice    *float64 `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice    *float64 `json:"maxPrice" validate:"omitempty,gte=0"`
	Sort        string   `json:"sort" validate:"omitempty,oneof=relevance price-asc price-desc rating-asc rating-desc newest newest-asc newest-desc"`
}

func (req DraftRequest) apply(d *domain.DraftFilterState) {
	d.Search = req.Search
	d.CategoryIDs = req.CategoryIDs
	d.BrandIDs = req.BrandIDs
	d.SkinTypeID = req.SkinTypeID
	d.Price = domain.PriceRange{Min: req.MinPrice, Max: req.MaxPrice}
	if req.Sort == "" {
		d.Sort = domain.TokenRelevance
	} else {
		d.Sort = domain.SortToken(req.Sort)
	}
}

type sessionCtxKey struct{}

// SessionHandler exposes live catalog sessions over HTTP.
type SessionHandler struct {
	registry *session.Registry
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(registry *session.Registry, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers all session routes
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.loadSession)

			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/navigate", h.Navigate)
			r.Post("/back", h.action((*session.Session).Back))
			r.Post("/forward", h.action((*session.Session).Forward))
			r.Put("/draft", h.EditDraft)
			r.Post("/drawer/open", h.action((*session.Session).OpenDrawer))
			r.Post("/drawer/close", h.action((*session.Session).CloseDrawer))
			r.Post("/apply", h.action((*session.Session).Apply))
			r.Post("/page", h.SetPage)
			r.Post("/sort", h.SetSort)
			r.Post("/clear", h.action((*session.Session).Clear))
			r.Post("/retry", h.action((*session.Session).Retry))
			r.Delete("/pills/{key}", h.RemovePill)
		})
	})
}

func (h *SessionHandler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.registry.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondWithDomainError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey{}, s)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx, h.logger).With(zap.String("session_id", s.ID())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionCtxKey{}).(*session.Session)
}

// Create mounts a session on the request's query string
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create(r.URL.RawQuery, r.Header.Get("Accept-Language"))

	snap, err := s.Snapshot()
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("Session mounted",
		zap.String("session_id", s.ID()),
		zap.String("query", snap.Query),
	)
	w.Header().Set("Location", "/api/sessions/"+s.ID())
	middleware.RespondWithJSON(w, http.StatusCreated, snap)
}

// Get returns the current snapshot
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondSnapshot(w, r, sessionFrom(r))
}

// Delete closes the session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(sessionFrom(r).ID()); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigate applies an external address bar change
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	s := sessionFrom(r)
	h.run(w, r, s, s.Navigate(req.Query))
}

// EditDraft replaces the draft filter fields
func (h *SessionHandler) EditDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	s := sessionFrom(r)
	h.run(w, r, s, s.EditDraft(req.apply))
}

// SetPage moves to another result page
func (h *SessionHandler) SetPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	s := sessionFrom(r)
	h.run(w, r, s, s.SetPage(req.Page))
}

// SetSort changes the ordering
func (h *SessionHandler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithRequestError(w, err)
		return
	}
	s := sessionFrom(r)
	h.run(w, r, s, s.SetSort(domain.SortToken(req.Sort)))
}

// RemovePill dismisses one filter dimension
func (h *SessionHandler) RemovePill(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	h.run(w, r, s, s.RemoveDimension(domain.Dimension(chi.URLParam(r, "key"))))
}

func (h *SessionHandler) action(op func(*session.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		h.run(w, r, s, op(s))
	}
}

func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	if err != nil {
		logger.FromContext(r.Context(), h.logger).Debug("Session operation rejected", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	h.respondSnapshot(w, r, s)
}

func (h *SessionHandler) respondSnapshot(w http.ResponseWriter, r *http.Request, s *session.Session) {
	snap, err := s.Snapshot()
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, snap)
}
