package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/cramdeck/internal/api"
	apiMiddleware "github.com/phrazzld/cramdeck/internal/api/middleware"
	"github.com/rs/cors"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   app.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler)

	authHandler := api.NewAuthHandler(app.users, app.logger)
	catalogHandler := api.NewCatalogHandler(app.catalog, app.logger)
	studyHandler := api.NewStudyHandler(app.study, app.mastery, app.logger)
	essayHandler := api.NewEssayHandler(app.essays, app.config.Storage.MaxUploadBytes, app.logger)
	adminHandler := api.NewAdminHandler(app.users, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.revoker)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/verify", authHandler.VerifyEmail)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Post("/auth/password-reset", authHandler.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", authHandler.ConfirmPasswordReset)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Get("/subjects", catalogHandler.ListSubjects)
			r.Get("/subjects/{id}/subtopics", catalogHandler.ListSubtopics)

			r.Route("/study", func(r chi.Router) {
				r.Post("/session", studyHandler.CreateSession)
				r.Get("/session", studyHandler.GetSession)
				r.Delete("/session", studyHandler.EndSession)
				r.Post("/session/{action}", studyHandler.ApplyAction)
				r.Get("/missed", studyHandler.ListMissed)
				r.Delete("/missed", studyHandler.ClearMissed)
			})
			r.Get("/mastery", studyHandler.Mastery)

			r.Post("/essays", essayHandler.Upload)
			r.Get("/essays", essayHandler.List)
			r.Get("/essays/{id}", essayHandler.Get)
			r.Post("/essays/{id}/grade", essayHandler.Grade)

			r.Route("/admin", func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin(app.users))

				r.Post("/subjects", catalogHandler.CreateSubject)
				r.Patch("/subjects/{id}", catalogHandler.RenameSubject)
				r.Delete("/subjects/{id}", catalogHandler.DeleteSubject)
				r.Post("/subjects/{id}/subtopics", catalogHandler.CreateSubtopic)
				r.Put("/subjects/{id}/subtopics/order", catalogHandler.ReorderSubtopics)

				r.Patch("/subtopics/{id}", catalogHandler.RenameSubtopic)
				r.Delete("/subtopics/{id}", catalogHandler.DeleteSubtopic)
				r.Post("/subtopics/{id}/move", catalogHandler.MoveSubtopic)
				r.Put("/subtopics/{id}/flashcards/order", catalogHandler.ReorderFlashcards)

				r.Get("/flashcards", catalogHandler.ListFlashcards)
				r.Post("/flashcards", catalogHandler.CreateFlashcard)
				r.Get("/flashcards/export", catalogHandler.ExportFlashcards)
				r.Get("/flashcards/{id}", catalogHandler.GetFlashcard)
				r.Put("/flashcards/{id}", catalogHandler.UpdateFlashcard)
				r.Delete("/flashcards/{id}", catalogHandler.DeleteFlashcard)
				r.Post("/flashcards/{id}/move", catalogHandler.MoveFlashcard)

				r.Post("/import", catalogHandler.ImportDeck)

				r.Get("/users", adminHandler.ListUsers)
				r.Get("/users/export.csv", adminHandler.ExportUsersCSV)
				r.Get("/users/emails", adminHandler.EmailList)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
