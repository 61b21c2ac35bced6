// Package api exposes the coordinator state over a read-only HTTP surface.
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"donation-tracker/internal/config"
)

// Options wire the handlers to their collaborators.
type Options struct {
	State          StateSource
	Head           BlockReader
	Campaign       config.CampaignConfig
	AllowedOrigins []string
	Build          string
}

// NewHandler builds the router with the middleware chain applied.
func NewHandler(opts Options, logger zerolog.Logger) http.Handler {
	logger = logger.With().Str("component", "http").Logger()

	h := newHealth(opts.State, opts.Head, opts.Build, logger)
	d := newDonations(opts.State, opts.Campaign, logger)

	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/liveness", h.Liveness).Methods(http.MethodGet)
	r.HandleFunc("/readiness", h.Readiness).Methods(http.MethodGet)
	r.HandleFunc("/api/donations", d.List).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	})

	var handler http.Handler = r
	handler = AccessLog(logger)(handler)
	handler = RequestID(handler)
	handler = c.Handler(handler)
	return handlers.RecoveryHandler()(handler)
}
