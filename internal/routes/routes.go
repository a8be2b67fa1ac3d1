package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/calmry/calmry-backend/internal/handlers"
	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/services"
)

// Deps carries the wired handlers and the pieces the auth middleware needs.
type Deps struct {
	Auth     *handlers.AuthHandler
	Mood     *handlers.MoodHandler
	Activity *handlers.ActivityHandler
	Chat     *handlers.ChatHandler
	Tokens   *services.TokenService
	Users    middleware.UserFinder
}

// Setup mounts all API routes on the router.
func Setup(r chi.Router, deps Deps) {
	requireAuth := middleware.Auth(deps.Tokens, deps.Users)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/signup", deps.Auth.Signup)
		r.Post("/signin", deps.Auth.Signin)
		r.Post("/signout", deps.Auth.Signout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", deps.Auth.Me)
			r.Get("/sessions", deps.Auth.Sessions)
			r.Patch("/update", deps.Auth.Update)
		})
	})

	r.Route("/api/mood", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/usermood", deps.Mood.Log)
		r.Get("/usermood", deps.Mood.List)
	})

	r.Route("/api/activity", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/useractivity", deps.Activity.Log)
		r.Get("/useractivity", deps.Activity.List)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/sessions", deps.Chat.CreateSession)
		r.Get("/sessions/{sessionID}", deps.Chat.GetSession)
		r.Get("/sessions/{sessionID}/history", deps.Chat.GetHistory)
		r.Post("/sessions/{sessionID}/end", deps.Chat.EndSession)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ChatSendRateLimit)
			r.Post("/sessions/{sessionID}/messages", deps.Chat.SendMessage)
		})
	})
}
