package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"polylingo/internal/http/handlers"
	"polylingo/internal/middleware"
)

// NewRouter wires every endpoint. Auth and catalog routes are public; the
// panels, the history lists, and the feeds require a session.
func NewRouter(app *handlers.App, countryLookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
		middleware.I18N("en", countryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// Catalog
	r.Get("/v1/languages", app.ListLanguages)
	r.Get("/v1/proficiencies", app.ListProficiencies)

	// Auth
	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signup", app.SignUp)
		r.Post("/signin", app.SignIn)
		r.Post("/logout", app.Logout)
		r.Get("/google/login", app.GoogleLogin)
		r.Get("/google/callback", app.GoogleCallback)
	})

	// Authenticated surface
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.AuthJWT(app.Config.JWTSecret),
			middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute),
		)

		r.Get("/v1/me", app.Me)

		r.Route("/v1/lessons", func(r chi.Router) {
			r.Post("/", app.GenerateLesson)
			r.Get("/", app.ListLessons)
			r.Get("/feed", app.LessonFeed)
		})

		r.Route("/v1/translations", func(r chi.Router) {
			r.Post("/", app.Translate)
			r.Get("/", app.ListTranslations)
			r.Get("/feed", app.TranslationFeed)
		})
	})

	return r
}
