package handlers

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

// requestTimeout bounds store work done on behalf of one request.
const requestTimeout = 5 * time.Second

// Deps are the collaborators the HTTP layer needs. Avatars may be nil when
// Cloudinary is not configured.
type Deps struct {
	Auth           *services.AuthService
	Progression    *services.ProgressionService
	Store          store.AccountStore
	Catalog        *catalog.Catalog
	Leaderboard    *services.Leaderboard
	Events         *services.EventHub
	Avatars        services.AvatarUploader
	SecureCookie   bool
	// AllowedOrigins gates browser WebSocket upgrades, as for CORS.
	AllowedOrigins []string
	Log            *logger.Logger
}

// Handler serves every Bolt API route.
type Handler struct {
	auth         *services.AuthService
	progression  *services.ProgressionService
	store        store.AccountStore
	catalog      *catalog.Catalog
	board        *services.Leaderboard
	events       *services.EventHub
	avatars      services.AvatarUploader
	tokens       *services.TokenService
	secureCookie bool
	upgrader     websocket.Upgrader
	log          *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		auth:         d.Auth,
		progression:  d.Progression,
		store:        d.Store,
		catalog:      d.Catalog,
		board:        d.Leaderboard,
		events:       d.Events,
		avatars:      d.Avatars,
		tokens:       d.Auth.Tokens(),
		secureCookie: d.SecureCookie,
		upgrader:     newEventsUpgrader(d.AllowedOrigins),
		log:          log,
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
