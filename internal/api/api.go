package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shopit-io/shopit/internal/auth"
	"github.com/shopit-io/shopit/internal/config"
)

type Api struct {
	Config *config.Config
	Router *chi.Mux

	authService  *auth.Service
	tokenManager *auth.TokenManager
}

func NewApi(cfg *config.Config, authService *auth.Service, tokenManager *auth.TokenManager) *Api {
	api := &Api{
		Config:       cfg,
		Router:       chi.NewRouter(),
		authService:  authService,
		tokenManager: tokenManager,
	}

	api.setupRoutes()
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Heartbeat("/heartbeat"))

	// Public routes
	r.Post("/register", api.RegisterHandler)
	r.Post("/login", api.LoginHandler)
	r.Post("/password/forgot", api.ForgotPasswordHandler)
	r.Put("/password/reset/{token}", api.ResetPasswordHandler)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(api.tokenManager))
		r.Get("/me", api.MeHandler)
	})
}

func (api *Api) Serve() error {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Starting API server on %s", addr)
	return server.ListenAndServe()
}
