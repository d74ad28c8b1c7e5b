package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/alumni-connect-api/api/swagger"
	"github.com/noah-isme/alumni-connect-api/internal/middleware"
	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/service"
	"github.com/noah-isme/alumni-connect-api/pkg/config"
	"github.com/noah-isme/alumni-connect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/alumni-connect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/alumni-connect-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, a *app, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", a.ops.Health)
	r.GET("/ready", a.ops.Ready)
	r.GET("/metrics", a.ops.Prometheus)
	r.GET("/ws", a.socket.Serve)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	requireAuth := middleware.JWT(a.auth)
	adminOnly := middleware.AdminOnly()
	alumniOrAdmin := middleware.RequireRoles(models.RoleAlumni, models.RoleAdmin)
	studentOnly := middleware.RequireRoles(models.RoleStudent)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logr, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/register", a.authHandler.Register)
	auth.POST("/login", a.authHandler.Login)
	auth.GET("/me", requireAuth, a.authHandler.Me)
	auth.POST("/change-password", requireAuth, a.authHandler.ChangePassword)
	auth.PUT("/approve/:id", requireAuth, adminOnly, audit("approve", "user"), a.authHandler.Approve)

	users := api.Group("/users", requireAuth)
	users.GET("", adminOnly, a.users.List)
	users.GET("/alumni", a.users.Directory)
	users.GET("/:id", a.users.Get)
	users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.Self), audit("update", "user"), a.users.Update)
	users.DELETE("/:id", adminOnly, audit("delete", "user"), a.users.Delete)

	jobs := api.Group("/jobs", requireAuth)
	jobs.GET("", a.jobs.List)
	jobs.GET("/applications/me", a.jobs.MyApplications)
	jobs.GET("/:id", a.jobs.Get)
	jobs.POST("", alumniOrAdmin, a.jobs.Create)
	jobs.PUT("/:id", a.jobs.Update)
	jobs.DELETE("/:id", audit("delete", "job"), a.jobs.Delete)
	jobs.POST("/:id/apply", studentOnly, a.jobs.Apply)
	jobs.PUT("/:id/applications/:userId", a.jobs.UpdateApplicationStatus)

	workshops := api.Group("/workshops", requireAuth)
	workshops.GET("", a.workshops.List)
	workshops.GET("/:id", a.workshops.Get)
	workshops.POST("", alumniOrAdmin, a.workshops.Create)
	workshops.PUT("/:id", a.workshops.Update)
	workshops.DELETE("/:id", audit("delete", "workshop"), a.workshops.Delete)
	workshops.POST("/:id/register", a.workshops.Register)
	workshops.DELETE("/:id/register", a.workshops.Unregister)

	// Published posts are readable without an account.
	blogs := api.Group("/blogs")
	blogs.GET("", middleware.OptionalJWT(a.auth), a.blogs.List)
	blogs.GET("/:id", middleware.OptionalJWT(a.auth), a.blogs.Get)
	blogs.POST("", requireAuth, a.blogs.Create)
	blogs.PUT("/:id", requireAuth, a.blogs.Update)
	blogs.DELETE("/:id", requireAuth, audit("delete", "blog"), a.blogs.Delete)
	blogs.POST("/:id/publish", requireAuth, a.blogs.Publish)
	blogs.POST("/:id/archive", requireAuth, a.blogs.Archive)
	blogs.POST("/:id/like", requireAuth, a.blogs.Like)
	blogs.POST("/:id/comments", requireAuth, a.blogs.Comment)
	blogs.POST("/:id/comments/:commentId/replies", requireAuth, a.blogs.Reply)
	blogs.PUT("/:id/comments/:commentId/moderate", requireAuth, adminOnly, audit("moderate", "comment"), a.blogs.Moderate)

	feedback := api.Group("/feedback", requireAuth)
	feedback.POST("", a.feedback.Create)
	feedback.GET("", adminOnly, a.feedback.List)
	feedback.GET("/me", a.feedback.Mine)
	feedback.GET("/stats", adminOnly, a.feedback.Stats)
	feedback.GET("/:id", a.feedback.Get)
	feedback.PUT("/:id", a.feedback.Update)
	feedback.PUT("/:id/response", adminOnly, audit("respond", "feedback"), a.feedback.Respond)
	feedback.POST("/:id/helpful", a.feedback.Helpful)

	mentorship := api.Group("/mentorship", requireAuth)
	mentorship.POST("/requests", studentOnly, a.mentorship.Request)
	mentorship.GET("/requests", a.mentorship.List)
	mentorship.PUT("/requests/:id/respond", a.mentorship.Respond)
	mentorship.PUT("/:id/complete", a.mentorship.Complete)
	mentorship.PUT("/:id/cancel", a.mentorship.Cancel)
	mentorship.GET("/relationships", a.mentorship.Relationships)
	mentorship.GET("/mentors", a.mentorship.Mentors)
	mentorship.GET("/stats", a.mentorship.Stats)

	programs := api.Group("/mentorship-programs", requireAuth)
	programs.GET("", a.programs.List)
	programs.GET("/:id", a.programs.Get)
	programs.POST("", alumniOrAdmin, a.programs.Create)
	programs.DELETE("/:id", a.programs.Delete)
	programs.POST("/:id/request", studentOnly, a.programs.Request)
	programs.PUT("/:id/requests/:requestId", a.programs.Respond)

	announcements := api.Group("/announcements", requireAuth)
	announcements.GET("", a.announcements.List)
	announcements.GET("/:id", a.announcements.Get)
	announcements.POST("", adminOnly, audit("create", "announcement"), a.announcements.Create)
	announcements.PUT("/:id", adminOnly, audit("update", "announcement"), a.announcements.Update)
	announcements.DELETE("/:id", adminOnly, audit("delete", "announcement"), a.announcements.Delete)
	announcements.POST("/:id/publish", adminOnly, audit("publish", "announcement"), a.announcements.Publish)
	announcements.POST("/:id/archive", adminOnly, audit("archive", "announcement"), a.announcements.Archive)

	chats := api.Group("/chats", requireAuth)
	chats.GET("", a.chats.List)
	chats.POST("", a.chats.Start)
	chats.GET("/:id/messages", a.chats.Messages)
	chats.POST("/:id/messages", a.chats.Send)
	chats.PUT("/:id/read", a.chats.Read)

	admin := api.Group("/admin", requireAuth, adminOnly)
	admin.GET("/analytics", a.analytics.Platform)
	admin.GET("/analytics/export", audit("export", "analytics"), a.analytics.Export)
	admin.GET("/users/pending", a.admin.PendingUsers)
	admin.GET("/mentorships", a.admin.Mentorships)
	admin.GET("/jobs", a.admin.Jobs)
	admin.GET("/applications", a.admin.Applications)

	uploads := api.Group("/uploads")
	uploads.POST("", requireAuth, a.uploads.Upload)
	// The signed token authorises the download.
	uploads.GET("/download", a.uploads.Download)

	return r
}
