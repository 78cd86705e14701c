package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/login", s.handleLoginURL)
		r.Get("/auth/callback", s.handleCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/auth/session", s.handleSession)
			r.Post("/auth/logout", s.handleLogout)

			r.Get("/state", s.handleGetState)

			r.Post("/plan/meals", s.handleAddMeal)
			r.Post("/plan/meals/remove", s.handleRemoveMeal)
			r.Post("/plan/meals/move", s.handleMoveMeal)

			r.Post("/notes", s.handleAddNote)
			r.Delete("/notes/{id}", s.handleRemoveNote)

			r.Get("/recipes", s.handleListRecipes)
			r.Post("/recipes", s.handleCreateRecipe)
			r.Post("/recipes/import", s.handleImportRecipe)
			r.Get("/recipes/{id}", s.handleGetRecipe)
			r.Put("/recipes/{id}", s.handleUpdateRecipe)
			r.Delete("/recipes/{id}", s.handleDeleteRecipe)

			r.Get("/shopping", s.handleGetShopping)
			r.Post("/shopping/items", s.handleAddManualItem)
			r.Post("/shopping/items/{id}/toggle", s.handleToggleManualItem)
			r.Post("/shopping/ingredients/toggle", s.handleToggleChecked)
			r.Post("/shopping/ingredients/hide", s.handleToggleHidden)
			r.Post("/shopping/clear", s.handleClearSelected)
			r.Post("/shopping/restore", s.handleRestoreHidden)
			r.Post("/shopping/push", s.handlePushShoppingList)

			r.Get("/calendar/events", s.handleListEvents)
			r.Post("/calendar/events", s.handleAddEvent)
		})
	})

	return r
}
