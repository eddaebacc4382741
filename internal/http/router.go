package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/smais007/eventora/internal/cache"
	"github.com/smais007/eventora/internal/config"
	"github.com/smais007/eventora/internal/domain/user"
	"github.com/smais007/eventora/internal/http/handlers"
	"github.com/smais007/eventora/internal/http/middlewares"
	"github.com/smais007/eventora/internal/notifications"
	"github.com/smais007/eventora/internal/observability"
)

// UsersStore is everything the HTTP layer needs from the user repository;
// both the postgres and the in-memory implementations satisfy it.
type UsersStore interface {
	Create(ctx context.Context, name, email, passwordHash, photoURL string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TokenService interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type Deps struct {
	Users    UsersStore
	Events   handlers.EventsStore
	Tokens   TokenService
	Cache    *cache.Cache
	Notifier notifications.Notifier

	Prom         *observability.Prom
	PromGatherer prometheus.Gatherer
	Tracing      bool

	RateStore middlewares.WindowStore

	Ping func() error
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())

	if deps.Tracing {
		r.Use(otelgin.Middleware("eventora"))
	}

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health + metrics
	health := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.PromGatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Users, deps.Tokens)
	eventsHandler := handlers.NewEventsHandler(deps.Events, deps.Cache, deps.Notifier, log)

	guard := middlewares.NewAuthMiddleware(deps.Tokens, deps.Users)

	// brute-force protection on the credential endpoints
	authGroup := r.Group("/auth")
	if deps.RateStore != nil {
		limiter := middlewares.NewRateLimiter(deps.RateStore, cfg.AuthRateLimit, cfg.AuthRateWindow)
		authGroup.Use(limiter.Middleware(middlewares.KeyByIP))
	}
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	r.GET("/events", eventsHandler.ListEvents)

	protected := r.Group("/events")
	protected.Use(guard.RequireAuth())
	protected.POST("", eventsHandler.CreateEvent)
	protected.GET("/my", eventsHandler.MyEvents)
	protected.POST("/join/:id", eventsHandler.JoinEvent)
	protected.PUT("/:id", eventsHandler.UpdateEvent)
	protected.DELETE("/:id", eventsHandler.DeleteEvent)

	return r
}
