package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkin", h.handleCheckIn)
		r.Get("/offline-bundle", h.handleOfflineBundle)
		r.Get("/members/{memberID}/attendance", h.handleMemberAttendance)
	})
	return r
}
