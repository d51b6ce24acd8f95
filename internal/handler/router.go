package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/supportdesk/supportgate/internal/middleware"
	"github.com/supportdesk/supportgate/internal/pkg/redact"
	"github.com/supportdesk/supportgate/internal/service"
)

// RouterDeps carries everything NewRouter wires together.
type RouterDeps struct {
	Audit       *service.AuditService
	Policy      *redact.Policy
	Tokens      *service.TokenService
	Auth        *service.AuthService
	Users       *service.UserService
	Profiles    *service.ProfileService
	Orders      *service.OrderService
	Roles       *service.RoleService
	Limiters    middleware.LimiterSource
	Idempotency middleware.IdempotencyStore

	AdminUsers     []string
	ReadOnly       bool
	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter builds the engine. The request log middleware is registered
// first so it observes every request, including ones rejected or crashed by
// later middleware.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Idempotency == nil {
		deps.Idempotency = middleware.NewInMemIdempotencyStore(0)
	}
	if deps.Limiters == nil {
		deps.Limiters = service.NewLimiterRegistry(0, 0)
	}

	r := gin.New()
	// gin's built-in 404/405 bodies and trailing-slash redirects are written
	// outside the handler chain, where the request log cannot see them
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true

	r.Use(middleware.AuditMiddleware(deps.Audit, deps.Policy, middleware.NewIdentityResolver(deps.Tokens)))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.ReadOnlyMiddleware(deps.ReadOnly))

	r.NoRoute(NotFound)
	r.NoMethod(MethodNotAllowed)

	r.GET("/", Home)
	r.GET("/health", Health)
	if deps.MetricsEnabled {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	authHandler := NewAuthHandler(deps.Auth)
	r.POST("/token", authHandler.Token)

	userHandler := NewUserHandler(deps.Users)
	profileHandler := NewProfileHandler(deps.Profiles)
	orderHandler := NewOrderHandler(deps.Orders)
	roleHandler := NewRoleHandler(deps.Roles)
	auditHandler := NewAuditHandler(deps.Audit)

	api := r.Group("/")
	api.Use(middleware.AuthMiddleware(deps.Tokens))
	api.Use(middleware.RateLimitMiddleware(deps.Limiters))
	api.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
	{
		users := api.Group("/users")
		users.POST("/", userHandler.Create)
		users.GET("/", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
		users.GET("/:id/profile", profileHandler.Get)
		users.PUT("/:id/profile", profileHandler.Put)
		users.GET("/:id/orders", orderHandler.ListByUser)
		users.PUT("/:id/roles", userHandler.SetRoles)

		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/:id", orderHandler.Get)
		api.PUT("/orders/:id", orderHandler.Update)
		api.DELETE("/orders/:id", orderHandler.Delete)

		api.GET("/roles", roleHandler.List)
		api.POST("/roles", roleHandler.Create)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware(deps.AdminUsers))
		admin.GET("/request-logs", auditHandler.List)
		admin.GET("/request-logs/stream", auditHandler.Stream)
	}

	return r
}
