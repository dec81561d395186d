package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/tallix-com/prodgo/internal/buildinfo"
	"github.com/tallix-com/prodgo/internal/catalog"
	"github.com/tallix-com/prodgo/internal/config"
	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/middleware"
	"github.com/tallix-com/prodgo/internal/models"
	"github.com/tallix-com/prodgo/internal/production"
	"github.com/tallix-com/prodgo/internal/websocket"
)

// Router wraps the mux router and the services behind the HTTP surface
type Router struct {
	*mux.Router
	db         *database.DB
	cfg        *config.Config
	log        *logrus.Logger
	production *production.Service
	catalog    *catalog.Service
	hub        *websocket.Hub
	validate   *validator.Validate
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, log *logrus.Logger, prod *production.Service, cat *catalog.Service, hub *websocket.Hub) *Router {
	r := &Router{
		Router:     mux.NewRouter(),
		db:         db,
		cfg:        cfg,
		log:        log,
		production: prod,
		catalog:    cat,
		hub:        hub,
		validate:   validator.New(),
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Live entry feed for scanner devices
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(hub, w, req)
	})

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))

	api.HandleFunc("/products/{code}", r.getProduct).Methods("GET")

	days := api.PathPrefix("/production/days/{date}").Subrouter()
	days.HandleFunc("", r.getDayStatus).Methods("GET")
	days.HandleFunc("/entries", r.listEntries).Methods("GET")
	days.HandleFunc("/entries", r.addEntry).Methods("POST")
	days.HandleFunc("/summary", r.getSummary).Methods("GET")
	days.HandleFunc("/export", r.exportDay).Methods("GET")
	days.Handle("/finalize", middleware.RequireRole(models.RoleSupervisor)(http.HandlerFunc(r.finalizeDay))).Methods("POST")
	days.Handle("/reopen", middleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(r.reopenDay))).Methods("POST")

	entries := api.PathPrefix("/production/entries/{id}").Subrouter()
	entries.HandleFunc("", r.updateEntry).Methods("PUT")
	entries.HandleFunc("", r.deleteEntry).Methods("DELETE")
	entries.HandleFunc("/check", r.checkEntry).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"buildTime":   buildinfo.BuildTime,
		"commitHash":  buildinfo.CommitHash,
		"startedAt":   buildinfo.StartTime,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
