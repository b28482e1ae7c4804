package api

import (
	"math/rand"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/video-summary/backend/internal/api/handlers"
	"github.com/video-summary/backend/internal/api/middleware"
	"github.com/video-summary/backend/internal/auth"
	"github.com/video-summary/backend/internal/config"
	"github.com/video-summary/backend/internal/openai"
	"github.com/video-summary/backend/internal/store"
	"github.com/video-summary/backend/internal/subtitle"
)

// maxJSONBody caps request bodies. Re-summarize payloads carry a whole
// transcript inline, so this is generous.
const maxJSONBody = 4 << 20

func NewRouter(cfg *config.Config, fetcher *subtitle.Fetcher, provider *openai.Client, cache *store.Store, rnd *rand.Rand) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.MaxBodySize(maxJSONBody))

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	// Handlers
	summarizeHandler := handlers.NewSummarizeHandler(fetcher, provider, cache, cfg.EnableAudioTranscription, cfg.TranscriptByteLimit, rnd)
	resummarizeHandler := handlers.NewResummarizeHandler(provider, cfg.TranscriptByteLimit, rnd)
	qaHandler := handlers.NewQAHandler(provider)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			if cfg.AuthSecret != "" {
				r.Use(middleware.AuthMiddleware(auth.NewJWTService(cfg.AuthSecret)))
			}

			r.Post("/summarize", summarizeHandler.Summarize)
			r.Post("/resummarize", resummarizeHandler.Resummarize)
			r.Post("/qa", qaHandler.Answer)
		})
	})

	return r
}
