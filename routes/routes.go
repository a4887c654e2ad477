package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kuanyshev/lastman-system/handlers"
	"github.com/kuanyshev/lastman-system/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	authenticator *middleware.Authenticator,
	cronSecret string,
	competitionHandler *handlers.CompetitionHandler,
	roundHandler *handlers.RoundHandler,
	pickHandler *handlers.PickHandler,
	teamHandler *handlers.TeamHandler,
	cronHandler *handlers.CronHandler,
	liveHandler *handlers.LiveHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api", func(r chi.Router) {
		r.Route("/competitions", func(r chi.Router) {
			// Публичные маршруты для просмотра соревнований
			r.Get("/", competitionHandler.ListHandler)
			r.Get("/{competitionID}", competitionHandler.GetByIDHandler)
			r.Get("/{competitionID}/rounds", roundHandler.ListByCompetitionHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticator.Authenticate)
				r.Post("/{competitionID}/enter", competitionHandler.EnterHandler)
				r.Get("/{competitionID}/entry-status", competitionHandler.EntryStatusHandler)
				r.Post("/{competitionID}/crest", competitionHandler.UploadCrestHandler)
			})
		})

		r.Get("/rounds/{roundID}/fixtures", roundHandler.FixturesHandler)
		r.Get("/teams/lookup", teamHandler.LookupHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticator.Authenticate)
			r.Get("/picks", pickHandler.ListHandler)
			r.Post("/picks", pickHandler.SaveHandler)
			r.Post("/teams/{teamID}/crest", teamHandler.UploadCrestHandler)
		})

		r.Route("/cron", func(r chi.Router) {
			r.Use(middleware.RequireCronSecret(cronSecret))
			r.Post("/update-gameweek-status", cronHandler.UpdateGameweekStatusHandler)
			r.Post("/process-results", cronHandler.ProcessResultsHandler)
			r.Post("/lock-picks", cronHandler.LockPicksHandler)
		})
	})

	router.Get("/ws/competitions/{competitionID}", liveHandler.ServeWs)
}
