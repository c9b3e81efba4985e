package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/swiss-system/handlers"
	"github.com/Dosada05/swiss-system/middleware"
)

type Deps struct {
	Tournaments    *handlers.TournamentHandler
	WebSocket      *handlers.WebSocketHandler
	Auth           *middleware.Auth
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	th := d.Tournaments
	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", th.ListTournaments)

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Authenticate)
			r.Use(d.Auth.Authorize(middleware.RoleOrganizer))
			r.Post("/", th.CreateTournament)
		})

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", th.GetTournament)
			r.Get("/pairings", th.GetPairings)
			r.Get("/standings", th.GetStandings)

			r.Group(func(r chi.Router) {
				r.Use(d.Auth.Authenticate)
				r.Use(d.Auth.Authorize(middleware.RoleOrganizer))
				r.Put("/setup", th.ResetupTournament)
				r.Put("/pairings", th.SetPairings)
				r.Post("/results", th.CommitResults)
				r.Delete("/", th.DeleteTournament)
			})
		})
	})

	if d.WebSocket != nil {
		r.Get("/ws/tournaments/{tournamentID}", d.WebSocket.ServeWs)
	}

	return r
}
