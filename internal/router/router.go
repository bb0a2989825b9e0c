package router

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bluerally/buooy-backend/internal/handlers"
	"github.com/bluerally/buooy-backend/internal/middleware"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/services"
	"github.com/bluerally/buooy-backend/internal/social"
	"github.com/bluerally/buooy-backend/pkg/cache"
	"github.com/bluerally/buooy-backend/pkg/config"
	"github.com/bluerally/buooy-backend/pkg/metrics"
	"github.com/bluerally/buooy-backend/pkg/storage"
)

// Dependencies carries everything the routes are built from. RequestLogs,
// RequestLogWriter, Metrics and Health may be nil. The caller closes
// RequestLogWriter once the server has shut down.
type Dependencies struct {
	Config           *config.Config
	DB               *gorm.DB
	Cache            cache.Store
	Storage          storage.ObjectStorage
	Providers        *social.Registry
	Metrics          *metrics.Metrics
	RequestLogs      repositories.RequestLogRepository
	RequestLogWriter *middleware.RequestLogWriter
	Health           map[string]handlers.Pinger
	Log              *zap.Logger
}

// Services are shared between the HTTP routes and the scheduler.
type Services struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Parties       *services.PartyService
	Participation *services.ParticipationService
	PartyComments *services.PartyCommentService
	Notifications *services.NotificationService
	Community     *services.CommunityService
	Feedback      *services.FeedbackService
	Admin         *services.AdminService
}

// NewServices builds every service over one repository store.
func NewServices(deps Dependencies) *Services {
	store := repositories.NewStore(deps.DB)
	loc := deps.Config.Location()
	log := deps.Log

	return &Services{
		Auth:          services.NewAuthService(store, deps.Providers, deps.Cache, deps.Config.JWT, log),
		Users:         services.NewUserService(store, deps.Storage, log),
		Parties:       services.NewPartyService(store, log, loc),
		Participation: services.NewParticipationService(store, log),
		PartyComments: services.NewPartyCommentService(store, log, loc),
		Notifications: services.NewNotificationService(store.Notifications, log),
		Community:     services.NewCommunityService(store, deps.Cache, deps.Storage, log, loc),
		Feedback:      services.NewFeedbackService(store.Feedback, log),
		Admin:         services.NewAdminService(store, deps.Config.Admin, log),
	}
}

// SetupRoutes installs the middleware chain and every route group.
func SetupRoutes(e *echo.Echo, deps Dependencies, svc *Services) error {
	cfg := deps.Config
	log := deps.Log

	renderer, err := handlers.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load admin templates: %w", err)
	}
	e.Renderer = renderer

	config.SetupMiddleware(e, cfg.App)
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
	}
	var reader handlers.RequestLogReader
	if deps.RequestLogs != nil {
		reader = deps.RequestLogs
	}
	e.Use(middleware.RequestLogger(log, deps.RequestLogWriter))

	requireAuth := middleware.JWTAuthMiddleware(cfg.JWT.Secret)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(cfg.JWT.Secret)

	health := handlers.NewHealthHandler(cfg.App.Name, deps.Health)
	e.GET("/health", health.HealthCheck)

	userGroup := e.Group("/api/user", optionalAuth)
	handlers.NewAuthHandler(svc.Auth, cfg.App.ClientURL, !cfg.IsProduction(), log).RegisterAuthRoutes(userGroup, requireAuth)
	handlers.NewUserHandler(svc.Users, svc.Parties, log).RegisterProfileRoutes(userGroup, requireAuth)

	partyGroup := e.Group("/api/party", optionalAuth)
	handlers.NewPartyHandler(svc.Parties, svc.Participation, svc.PartyComments, log).RegisterPartyRoutes(partyGroup, requireAuth)

	communityGroup := e.Group("/api/community", optionalAuth)
	handlers.NewCommunityHandler(svc.Community, log).RegisterCommunityRoutes(communityGroup, requireAuth)

	notificationGroup := e.Group("/api/notifications", requireAuth)
	handlers.NewNotificationHandler(svc.Notifications, cfg.Location(), log).RegisterNotificationRoutes(notificationGroup)

	handlers.NewFeedbackHandler(svc.Feedback, log).RegisterFeedbackRoutes(e.Group("/api/feedback"))

	handlers.NewAdminHandler(svc.Admin, svc.Feedback, svc.Notifications, reader, cfg.IsProduction(), log).RegisterAdminRoutes(e.Group("/admin"))

	log.Info("routes configured", zap.Int("count", len(e.Routes())))
	return nil
}

// NewServer builds a configured echo instance.
func NewServer(deps Dependencies) (*echo.Echo, *Services, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second

	svc := NewServices(deps)
	if err := SetupRoutes(e, deps, svc); err != nil {
		return nil, nil, err
	}
	return e, svc, nil
}
