package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"timesheets/internal/config"
	"timesheets/internal/csrf"
	"timesheets/internal/jobs"
	"timesheets/internal/middleware"
	"timesheets/internal/models"
	"timesheets/internal/security"
	"timesheets/internal/service"
)

// Deps are the collaborators built once in main. Cache may be nil when Redis
// is not configured.
type Deps struct {
	Config       *config.AppConfig
	Auth         *service.AuthService
	WorkOrders   *service.WorkOrderService
	Directory    *service.DirectoryService
	Issuer       *security.TokenIssuer
	Guard        *csrf.Guard
	Jobs         *jobs.Registry
	DatabasePing func(ctx context.Context) error
	Cache        *redis.Client
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	auth         *service.AuthService
	workOrders   *service.WorkOrderService
	directory    *service.DirectoryService
	issuer       *security.TokenIssuer
	guard        *csrf.Guard
	jobs         *jobs.Registry
	databasePing func(ctx context.Context) error
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, deps Deps) HandlerSet {
	return HandlerSet{
		log:          log,
		cfg:          deps.Config,
		auth:         deps.Auth,
		workOrders:   deps.WorkOrders,
		directory:    deps.Directory,
		issuer:       deps.Issuer,
		guard:        deps.Guard,
		jobs:         deps.Jobs,
		databasePing: deps.DatabasePing,
		cache:        deps.Cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.CSRF(h.guard))
	v1.GET("/csrf-token", h.CSRFToken)

	throttle := middleware.RateLimit(h.cfg.RateLimit, h.cache, h.log)
	authenticated := middleware.Auth(h.issuer)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	auth := v1.Group("/auth")
	{
		auth.POST("/register", throttle, h.RegisterAccount)
		auth.POST("/login", throttle, h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/forgot-password", throttle, h.ForgotPassword)
		auth.POST("/reset-password", throttle, h.ResetPassword)

		auth.GET("/me", authenticated, h.Me)
		auth.POST("/logout-all", authenticated, h.LogoutAll)
		auth.POST("/change-password", authenticated, h.ChangePassword)
	}

	identities := v1.Group("/identities", authenticated, adminOnly)
	identities.POST("", h.CreateIdentity)

	sites := v1.Group("/sites", authenticated)
	sites.GET("", h.ListSites)
	sites.POST("", adminOnly, h.CreateSite)

	orders := v1.Group("/work-orders", authenticated)
	{
		orders.POST("", h.CreateWorkOrder)
		orders.GET("/:id", h.GetWorkOrder)
		orders.PUT("/:id", h.UpdateWorkOrder)
		orders.POST("/:id/submit", h.SubmitWorkOrder)
		orders.POST("/:id/validate", h.ApproveWorkOrder)
		orders.POST("/:id/reject", h.RejectWorkOrder)
		orders.POST("/:id/expenses", h.AddExpense)
		orders.DELETE("/:id/expenses/:expenseId", h.RemoveExpense)
		orders.PUT("/:id/expenses/:expenseId/receipt", h.AttachReceipt)
	}

	admin := v1.Group("/jobs", authenticated, adminOnly)
	admin.GET("", h.ListJobs)
	admin.PATCH("/:name/toggle", h.ToggleJob)
	admin.POST("/:name/run", h.RunJob)
}

// actorID is only called behind middleware.Auth.
func actorID(c *gin.Context) string {
	identity, _ := middleware.CurrentIdentity(c)
	return identity.IdentityID
}
