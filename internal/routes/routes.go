package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/bolt-backend/internal/handlers"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
)

func SetupRoutes(r chi.Router, h *handlers.Handler, auth *middleware.Authenticator) {
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Auth routes
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(auth.RequireAuth).Get("/me", h.Me)
		r.With(auth.RequireAuth).Post("/refresh", h.Refresh)
	})

	// User routes
	r.Route("/api/user", func(r chi.Router) {
		r.Get("/leaderboard", h.Leaderboard)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth, middleware.ActionRateLimit)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/avatar", h.UploadAvatar)
			r.Get("/stats", h.Stats)
			r.Post("/coins/add", h.AddCoins)
			r.Post("/xp/add", h.AddXP)
			r.Get("/friends", h.ListFriends)
			r.Post("/friends/request", h.SendFriendRequest)
			r.Post("/friends/accept", h.AcceptFriendRequest)
		})
	})

	// Game routes
	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", h.ListGames)
		r.Get("/categories", h.GameCategories)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth, middleware.ActionRateLimit)
			r.Post("/start", h.StartGame)
			r.Post("/complete", h.CompleteGame)
			r.Get("/stats", h.GameStats)
		})
	})

	// Task routes
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/categories", h.TaskCategories)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth, middleware.ActionRateLimit)
			r.Get("/", h.ListTasks)
			r.Post("/complete", h.CompleteTask)
			r.Get("/stats", h.TaskStats)
		})
	})

	// Shop routes
	r.Route("/api/shop", func(r chi.Router) {
		r.Get("/", h.ListShop)
		r.Get("/categories", h.ShopCategories)
		r.Get("/popular", h.PopularItems)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth, middleware.ActionRateLimit)
			r.Post("/purchase", h.Purchase)
			r.Get("/history", h.PurchaseHistory)
		})
	})

	// WebSocket endpoint for progression events
	r.With(auth.RequireQueryToken).Get("/ws/events", h.Events)
}
