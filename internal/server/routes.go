// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/regdesk/internal/handlers"
	"codeberg.org/oliverandrich/regdesk/internal/middleware"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers, tokens middleware.TokenParser, accounts middleware.AccountLoader, reg *prometheus.Registry) {
	requireAdmin := middleware.RequireAccount(models.KindAdmin, tokens, accounts)
	requireVolunteer := middleware.RequireAccount(models.KindVolunteer, tokens, accounts)
	requireUser := middleware.RequireAccount(models.KindUser, tokens, accounts)

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	e.POST("/upload", h.Upload)

	api := e.Group("/api/v1")

	user := api.Group("/user")
	user.POST("/send-email-otp", h.SendEmailOTP)
	user.POST("/verify-email-otp", h.VerifyEmailOTP)
	user.POST("/register", h.RegisterUser)
	user.POST("/login", h.Login(models.KindUser))
	user.POST("/forgot-password", h.ForgotPassword(models.KindUser))
	user.POST("/password/forgot", h.ForgotPassword(models.KindUser))
	user.PUT("/reset-password/:token", h.ResetPassword(models.KindUser))
	user.PUT("/password/reset/:token", h.ResetPassword(models.KindUser))
	user.GET("/volunteers", h.Volunteers)
	user.GET("/logout", h.Logout, requireUser)
	user.GET("/me", h.Me, requireUser)
	user.GET("/approve", h.ApprovePage)
	user.POST("/approve", h.Approve)
	user.POST("/update-ccc-status", h.UpdateCCCStatus, requireUser)
	user.GET("/ccc-status", h.CCCStatus, requireUser)
	user.GET("/dashboard/jobroles", h.DashboardJobRoles, requireUser)
	user.GET("/dashboard/search-courses", h.SearchCourses, requireUser)
	user.POST("/dashboard/select", h.SelectCourse, requireUser)
	user.POST("/update-job-courses", h.SelectCourse, requireUser)

	volunteer := api.Group("/volunteer")
	volunteer.POST("/register", h.RegisterVolunteer)
	volunteer.POST("/otp-verification", h.VerifyAccount(models.KindVolunteer))
	volunteer.POST("/verify-email-otp", h.VerifyAccount(models.KindVolunteer))
	volunteer.POST("/login", h.Login(models.KindVolunteer))
	volunteer.POST("/password/forgot", h.ForgotPassword(models.KindVolunteer))
	volunteer.PUT("/password/reset/:token", h.ResetPassword(models.KindVolunteer))
	volunteer.GET("/logout", h.Logout, requireVolunteer)
	volunteer.GET("/me", h.Me, requireVolunteer)

	admin := api.Group("/admin")
	admin.POST("/register", h.RegisterAdmin)
	admin.POST("/login", h.Login(models.KindAdmin))
	admin.POST("/password/forgot", h.ForgotPassword(models.KindAdmin))
	admin.PUT("/password/reset/:token", h.ResetPassword(models.KindAdmin))

	dashboard := admin.Group("", requireAdmin)
	dashboard.GET("/logout", h.Logout)
	dashboard.GET("/me", h.Me)
	dashboard.GET("/volunteers", h.ListAccounts(models.KindVolunteer))
	dashboard.GET("/users", h.ListAccounts(models.KindUser))
	dashboard.GET("/count", h.Count)
	dashboard.GET("/volunteer-candidate-count", h.VolunteerCandidateCount)
	dashboard.GET("/volunteer/:regNumber", h.Volunteer)
	dashboard.PUT("/volunteer/block/:regNumber", h.ToggleVolunteerBlock)
	dashboard.GET("/job-roles", h.ListJobRoles)
	dashboard.POST("/job-roles", h.CreateJobRole)
	dashboard.GET("/courses", h.ListCourses)
	dashboard.POST("/courses", h.CreateCourse)
}
