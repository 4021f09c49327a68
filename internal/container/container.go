package container

import (
	"log/slog"

	"github.com/joshua-takyi/minisocial/internal/config"
	"github.com/joshua-takyi/minisocial/internal/helpers"
	"github.com/joshua-takyi/minisocial/internal/middleware"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/services"
)

const SessionCookieName = "sid"

// Container holds all application dependencies
type Container struct {
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionCookie   middleware.SessionCookie
	Guard           *services.Guard
	IdentityService *services.IdentityService
	SocialService   *services.SocialService
	FeedService     *services.FeedService
}

// Repos groups the storage collaborators the services run on.
type Repos struct {
	Users    models.UserRepo
	Posts    models.PostRepo
	Sessions models.SessionStore
	Attempts models.AttemptLimiter
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger, repos Repos, mailer helpers.Mailer) *Container {
	identity := services.NewIdentityService(
		repos.Users,
		repos.Posts,
		repos.Sessions,
		repos.Attempts,
		mailer,
		logger,
		services.IdentityConfig{
			JWTSecret:      cfg.JWTSecret,
			TokenTTL:       cfg.TokenTTL,
			SessionTTL:     cfg.SessionTTL,
			OTPTTL:         cfg.OTPTTL,
			OTPMaxAttempts: cfg.OTPMaxAttempts,
		},
	)

	return &Container{
		Logger:         logger,
		AllowedOrigins: []string{cfg.AllowedOrigin},
		SessionCookie: middleware.SessionCookie{
			Name:   SessionCookieName,
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.IsProduction(),
		},
		Guard:           services.NewGuard(repos.Users, repos.Sessions, cfg.JWTSecret),
		IdentityService: identity,
		SocialService:   services.NewSocialService(repos.Users, repos.Posts),
		FeedService:     services.NewFeedService(repos.Users, repos.Posts),
	}
}
