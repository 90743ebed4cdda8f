package emulator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler returns an http router serving the emulated feeds.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	return s.applyRoutes(r)
}

func (s *Server) applyRoutes(r chi.Router) chi.Router {
	r.Use(s.recordRequest)
	r.Post("/accounts/ClientLogin", s.postClientLogin)

	r.Route("/feeds", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/cells/{key}/{ws}/private/full", s.getCells)
		r.Post("/cells/{key}/{ws}/private/full/batch", s.postBatch)
		r.Get("/worksheets/{key}/private/full/{ws}", s.getWorksheet)
		r.Put("/worksheets/{key}/private/full/{ws}/{version}", s.putWorksheet)
		r.Delete("/worksheets/{key}/private/full/{ws}/{version}", s.deleteWorksheet)
	})

	return r
}
