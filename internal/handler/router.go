package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Folders *FolderHandler
	Files   *FileHandler
	Shares  *ShareHandler
	Usage   *UsageHandler
	CSRF    *CSRFHandler
	Health  *HealthHandler
}

type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Authenticate   func(http.Handler) http.Handler
	APILimit       func(http.Handler) http.Handler
	ShareLimit     func(http.Handler) http.Handler
}

func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(SecureHeaders)

	// без явного списка источников куки и заголовки авторизации не разрешаются
	origins := opts.AllowedOrigins
	credentials := len(origins) > 0
	if !credentials {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", csrfHeaderName},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", csrfHeaderName},
		AllowCredentials: credentials,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health.Check)

	r.Route("/api", func(r chi.Router) {
		// публичные маршруты ссылок
		r.Group(func(r chi.Router) {
			r.Use(passthrough(opts.ShareLimit))
			r.Get("/shares/info/{token}", h.Shares.GetShareInfo)
			r.Post("/shares/{id}/download", h.Shares.Download) // {id} здесь токен ссылки
		})

		r.Group(func(r chi.Router) {
			r.Use(passthrough(opts.APILimit))
			r.Use(passthrough(opts.Authenticate))
			r.Get("/csrf", h.CSRF.IssueToken)

			r.Group(func(r chi.Router) {
				r.Use(h.CSRF.Require)

				r.Get("/folders", h.Folders.ListFolders)
				r.Post("/folders", h.Folders.CreateFolder)
				r.Get("/folders/path/{id}", h.Folders.GetFolderPath)
				r.Delete("/folders/{id}", h.Folders.DeleteFolder)

				r.Get("/files", h.Files.ListFiles)
				r.Post("/files", h.Files.RegisterFile)
				r.Delete("/files/{id}", h.Files.DeleteFile)
				r.Get("/files/{id}/shares", h.Files.ListShares)

				r.Post("/shares", h.Shares.CreateShare)
				r.Delete("/shares/{id}", h.Shares.DeleteShare)
				r.Post("/shares/{id}/revoke", h.Shares.RevokeShare)

				r.Get("/stats", h.Usage.GetStats)
			})
		})
	})

	return r
}

func passthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}
