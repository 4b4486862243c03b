package delivery

import (
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func RegisterRoutes(
	r chi.Router,
	hViewer *ViewerHandler,
	hDocs *DocumentHandler,
) {
	r.Route("/", func(pr chi.Router) {
		pr.Use(
			httputil.RecoverMiddleware,
			httprate.LimitByIP(120, time.Minute),
		)

		// --- containers ---
		pr.Post("/containers/{container}/documents", hViewer.SelectFile)
		pr.Post("/containers/{container}/bind", hViewer.Bind)
		pr.Delete("/containers/{container}", hViewer.Unbind)
		pr.Get("/containers/{container}", hViewer.Status)

		// --- documents ---
		pr.Get("/documents", hDocs.List)
		pr.Delete("/documents/{id}", hDocs.Delete)
	})
}
