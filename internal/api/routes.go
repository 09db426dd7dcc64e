package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// setupPageRoutes sets up the HTML pages
func (s *Server) setupPageRoutes(r chi.Router) {
	r.Get("/", s.HandleLanding)

	r.Get("/login", s.HandleLoginPage(models.RoleUser))
	r.Post("/login", s.HandleLoginSubmit(models.RoleUser))
	r.Get("/admin/login", s.HandleLoginPage(models.RoleAdmin))
	r.Post("/admin/login", s.HandleLoginSubmit(models.RoleAdmin))
	r.Post("/logout", s.HandleLogoutPage)

	r.Group(func(r chi.Router) {
		r.Use(requireRole(models.RoleUser, s.redirectToLogin))
		r.Get("/dashboard", s.HandleDashboard)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireRole(models.RoleAdmin, s.redirectToLogin))
		r.Get("/admin", s.HandleAdminDashboard)
	})
}

// setupAPIRoutes sets up API v1 routes
func (s *Server) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleAPILogin)
		r.With(requireRole(models.RoleUser, s.denyAPI)).Post("/logout", s.HandleAPILogout)
		r.With(requireRole(models.RoleUser, s.denyAPI)).Get("/me", s.HandleAPIMe)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(requireRole(models.RoleUser, s.denyAPI))
		r.Get("/uplinks/{dev_eui}", s.HandleAPIUplinks)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireRole(models.RoleAdmin, s.denyAPI))
		r.Get("/devices", s.HandleAPIDevices)
	})
}
