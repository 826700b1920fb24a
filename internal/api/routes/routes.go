package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/jobsphere/internal/api/handlers"
	"github.com/yoockh/jobsphere/internal/api/middleware"
	"github.com/yoockh/jobsphere/internal/auth"
	"github.com/yoockh/jobsphere/internal/metrics"
	"github.com/yoockh/jobsphere/internal/models"
)

type Deps struct {
	Sessions *auth.SessionIssuer
	Limiter  *middleware.RateLimiter

	Auth         *handlers.AuthHandler
	Me           *handlers.MeHandler
	Jobs         *handlers.JobHandler
	Applications *handlers.ApplicationHandler
	Admin        *handlers.AdminHandler
	Contact      *handlers.ContactHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public, rate limited
	limited := api.Group("/")
	if d.Limiter != nil {
		limited.Use(d.Limiter.Handler())
	}
	limited.POST("/auth/register", d.Auth.Register)
	limited.POST("/auth/login", d.Auth.Login)
	limited.POST("/auth/verify-email", d.Auth.VerifyEmail)
	limited.POST("/auth/resend-verification", d.Auth.ResendVerification)
	limited.POST("/contact", d.Contact.Submit)

	api.GET("/jobs", d.Jobs.Search)
	api.GET("/jobs/:id", d.Jobs.Get)

	// Protected routes (JWT)
	authed := api.Group("/")
	authed.Use(middleware.JWTAuth(d.Sessions))

	authed.GET("/me", d.Me.Get)
	authed.PUT("/me/profile", d.Me.UpdateProfile)
	authed.POST("/me/resume", middleware.RequireRole(models.RoleStudent), d.Me.UploadResume)

	company := middleware.RequireRole(models.RoleCompany)
	owners := middleware.RequireRole(models.RoleCompany, models.RoleAdmin)
	authed.GET("/jobs/mine", company, d.Jobs.Mine)
	authed.POST("/jobs", company, d.Jobs.Create)
	authed.PATCH("/jobs/:id", owners, d.Jobs.Update)
	authed.DELETE("/jobs/:id", owners, d.Jobs.Delete)
	authed.PATCH("/jobs/:id/approve", middleware.RequireAdmin(), d.Jobs.Approve)
	authed.POST("/jobs/:id/apply", middleware.RequireRole(models.RoleStudent), d.Jobs.Apply)

	authed.GET("/company/applications", company, d.Applications.ForCompany)
	authed.GET("/student/applications", middleware.RequireRole(models.RoleStudent), d.Applications.ForStudent)
	authed.PATCH("/applications/:id/status", owners, d.Applications.UpdateStatus)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/overview", d.Admin.Overview)
	admin.GET("/users", d.Admin.Users)
	admin.PATCH("/users/:id", d.Admin.UpdateUser)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
	admin.GET("/jobs", d.Admin.Jobs)
	admin.PATCH("/jobs/:id", d.Admin.UpdateJob)
	admin.DELETE("/jobs/:id", d.Admin.DeleteJob)
	admin.GET("/applications", d.Admin.Applications)
	admin.GET("/audit", d.Admin.Audit)
	admin.GET("/contact-messages", d.Admin.ContactMessages)
}
