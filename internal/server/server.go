package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/leaflog/leaflog-backend/internal/handler"
	appmw "github.com/leaflog/leaflog-backend/internal/middleware"
	"github.com/leaflog/leaflog-backend/internal/repository"
	"github.com/leaflog/leaflog-backend/internal/service"
	"github.com/leaflog/leaflog-backend/internal/storage"
	"golang.org/x/time/rate"
)

// Deps is everything the HTTP layer needs. Images, CareTips and Users are
// optional.
type Deps struct {
	Locations     repository.LocationRepository
	Profiles      repository.ProfileRepository
	Interactions  repository.InteractionRepository
	Notifications repository.NotificationRepository

	Verifier appmw.TokenVerifier
	Users    handler.UserLookup
	Images   storage.ImageHost
	CareTips service.CareTipsSuggester

	PointsIncrement int64
	AwardRateLimit  float64
	// CORSOriginHost is the https host allowed as an origin, together with
	// its subdomains.
	CORSOriginHost  string

	GitSHA    string
	BuildTime string
}

type Server struct {
	e *echo.Echo
}

const (
	uploadLimit = "10M"
	jsonLimit   = "64K"
)

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(d.CORSOriginHost),
	}))

	notifySvc := service.NewNotificationService(d.Notifications)
	locationSvc := service.NewLocationService(d.Locations, d.Images, d.CareTips)
	pointsSvc := service.NewPointsService(d.Locations, d.Profiles, d.Interactions, notifySvc, d.PointsIncrement)
	rankingSvc := service.NewRankingService(d.Locations, d.Profiles)
	profileSvc := service.NewProfileService(d.Profiles, d.Images)

	locationHandler := handler.NewLocationHandler(locationSvc)
	pointsHandler := handler.NewPointsHandler(pointsSvc)
	rankingHandler := handler.NewRankingHandler(rankingSvc)
	profileHandler := handler.NewProfileHandler(profileSvc, locationSvc, d.Users)
	notificationHandler := handler.NewNotificationHandler(notifySvc)

	authMw := appmw.NewAuthMiddleware(d.Verifier)
	awardLimiter := awardRateLimiter(d.AwardRateLimit)
	bodyLimit := middleware.BodyLimit(uploadLimit)
	jsonBodyLimit := middleware.BodyLimit(jsonLimit)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    d.GitSHA,
			"build_time": d.BuildTime,
		})
	})

	api := e.Group("/api")
	api.POST("/me", profileHandler.Ensure, authMw.RequireAuth)
	api.GET("/me", profileHandler.Me, authMw.RequireAuth)
	api.PATCH("/me", profileHandler.Update, jsonBodyLimit, authMw.RequireAuth)
	api.PUT("/me/avatar", profileHandler.UploadAvatar, bodyLimit, authMw.RequireAuth)
	api.GET("/me/notifications", notificationHandler.List, authMw.RequireAuth)
	api.POST("/me/notifications/read", notificationHandler.MarkAllRead, authMw.RequireAuth)
	api.POST("/locations", locationHandler.Create, jsonBodyLimit, authMw.RequireAuth)
	api.PUT("/locations/:id/image", locationHandler.UploadImage, bodyLimit, authMw.RequireAuth)
	api.POST("/locations/:id/points", pointsHandler.Award, authMw.RequireAuth, awardLimiter)
	api.GET("/locations/:id/interaction", pointsHandler.Interaction, authMw.RequireAuth)

	api.GET("/users/:uid", profileHandler.GetPublic)
	api.GET("/users/:uid/stats", profileHandler.Stats)
	api.GET("/users/:uid/locations", locationHandler.ListByUser)
	api.GET("/locations", locationHandler.List)
	api.GET("/locations/nearby", locationHandler.Nearby)
	api.GET("/locations/nearby/stream", locationHandler.NearbyStream)
	api.GET("/locations/:id", locationHandler.Get)
	api.GET("/rankings/locations", rankingHandler.Locations)
	api.GET("/rankings/locations/stream", rankingHandler.LocationsStream)
	api.GET("/rankings/users", rankingHandler.Users, authMw.OptionalAuth)
	api.GET("/rankings/users/stream", rankingHandler.UsersStream, authMw.OptionalAuth)

	return &Server{e: e}
}

func allowOrigin(host string) func(string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "https" {
			return false, nil
		}
		suffix := strings.TrimPrefix(strings.ToLower(host), ".")
		if suffix == "" {
			return false, nil
		}
		h := strings.ToLower(u.Hostname())
		return h == suffix || strings.HasSuffix(h, "."+suffix), nil
	}
}

// awardRateLimiter limits awards per authenticated user. It must run after
// RequireAuth so the uid is set.
func awardRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		perSecond = 5
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     max(1, int(perSecond*2)),
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if uid, _ := c.Get("uid").(string); uid != "" {
				return uid, nil
			}
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate_limited", "too many requests"))
		},
	})
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
