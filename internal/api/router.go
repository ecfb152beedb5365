package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/recipe-studio/catalogue/internal/api/handlers"
	mw "github.com/recipe-studio/catalogue/internal/api/middleware"
	"github.com/recipe-studio/catalogue/internal/models"
)

type Dependencies struct {
	HMACSecret         []byte
	Users              mw.UserResolver
	HealthHandler      *handlers.HealthHandler
	AuthHandler        *handlers.AuthHandler
	RecipesHandler     *handlers.RecipesHandler
	TagsHandler        *handlers.LabelsHandler[models.Tag]
	IngredientsHandler *handlers.LabelsHandler[models.Ingredient]

	// MediaRoot is served under /media/ when set (local storage backend).
	MediaRoot      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	SwaggerURL     string
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(dep.CORSOrigins))
	r.Use(mw.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	swaggerURL := dep.SwaggerURL
	if swaggerURL == "" {
		swaggerURL = "/docs/doc.json"
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	if dep.MediaRoot != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(dep.MediaRoot))))
	}

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret, dep.Users))

			protected.Route("/users/me", func(ur chi.Router) {
				ur.Get("/", dep.AuthHandler.Me)
				ur.Patch("/", dep.AuthHandler.UpdateMe)
			})

			// Recipes
			protected.Route("/recipes", func(rr chi.Router) {
				rr.Get("/", dep.RecipesHandler.List)
				rr.Post("/", dep.RecipesHandler.Create)
				rr.Get("/{id}", dep.RecipesHandler.Get)
				rr.Put("/{id}", dep.RecipesHandler.Update)
				rr.Patch("/{id}", dep.RecipesHandler.Patch)
				rr.Delete("/{id}", dep.RecipesHandler.Delete)
				rr.Post("/{id}/image", dep.RecipesHandler.UploadImage)
			})

			protected.Route("/tags", labelRoutes(dep.TagsHandler))
			protected.Route("/ingredients", labelRoutes(dep.IngredientsHandler))
		})
	})

	return r
}

func labelRoutes[T any](h *handlers.LabelsHandler[T]) func(chi.Router) {
	return func(lr chi.Router) {
		lr.Get("/", h.List)
		lr.Post("/", h.Create)
		lr.Get("/{id}", h.Get)
		lr.Put("/{id}", h.Update)
		lr.Patch("/{id}", h.Update)
		lr.Delete("/{id}", h.Delete)
	}
}
