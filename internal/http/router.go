package http

import (
	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/geocoder89/salesdesk/internal/http/handlers"
	"github.com/geocoder89/salesdesk/internal/http/middlewares"
	"github.com/geocoder89/salesdesk/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Env                string
	ServiceName        string
	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	Auth         handlers.Authenticator
	Tokens       middlewares.TokenVerifier
	Salespersons handlers.SalespersonService
	Ready        map[string]handlers.Pinger

	// Prom and Gatherer are optional; without them /metrics is not mounted.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.ServiceName == "" {
		deps.ServiceName = "salesdesk"
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(deps.Env == "prod"))
	r.Use(middlewares.CORS(deps.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(deps.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	h := handlers.NewHealthHandler(deps.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(deps.Auth)
	api.POST("/auth/login", authHandler.Login)

	authMW := middlewares.NewAuthMiddleware(deps.Tokens)
	sp := handlers.NewSalespersonHandler(deps.Salespersons)

	admin := api.Group("/salesperson")
	admin.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	{
		admin.POST("", sp.Create)
		admin.GET("", sp.List)
		admin.GET("/:id", sp.Get)
		admin.PUT("/:id", sp.Update)
		admin.DELETE("/:id", sp.Delete)
	}

	return r
}
