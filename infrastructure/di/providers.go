package di

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"citypulse/application/favourites"
	"citypulse/application/identity"
	"citypulse/application/services"
	"citypulse/application/session"
	"citypulse/infrastructure/biometric"
	"citypulse/infrastructure/config"
	"citypulse/infrastructure/discovery"
	"citypulse/infrastructure/securestore"
	"citypulse/interfaces/http/rest"
	"citypulse/interfaces/http/rest/handlers"
	"citypulse/pkg/auth"
	"citypulse/pkg/observability"
	"citypulse/pkg/querycache"
)

// Container holds all application dependencies.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Collector  *observability.Collector
	Cache      *querycache.Cache
	Sessions   *session.Store
	Favourites *favourites.Store
	Events     *services.EventService
	Venues     *services.VenueService
	Tokens     *auth.TokenManager
	Router     chi.Router
}

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideCollector creates the metrics collector.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("citypulse")
}

// ProvideCache creates the shared query cache.
func ProvideCache(logger *zap.Logger, collector *observability.Collector) *querycache.Cache {
	return querycache.NewCache(logger, collector)
}

// ProvideGateway creates the discovery API client.
func ProvideGateway(cfg *config.Config, logger *zap.Logger, collector *observability.Collector) *discovery.Client {
	return discovery.NewClient(cfg, logger, collector)
}

// ProvideSecureStore picks the persistence backing for session state.
// An empty path means ephemeral in-memory storage.
func ProvideSecureStore(cfg *config.Config) securestore.Store {
	if cfg.SecureStorePath == "" {
		return securestore.NewMemoryStore()
	}
	return securestore.NewSQLiteStore(cfg.SecureStorePath, cfg.SecureStoreSecret)
}

// ProvideBiometric picks the biometric authenticator. The mock always
// passes its challenge, which is what local development wants.
func ProvideBiometric(cfg *config.Config) biometric.Authenticator {
	if cfg.MockBiometric {
		return biometric.NewMock()
	}
	return biometric.Unavailable{}
}

// ProvideIdentity creates the credential directory.
func ProvideIdentity() identity.Provider {
	return identity.NewMockDirectory()
}

// ProvideSessionStore creates the session store.
func ProvideSessionStore(provider identity.Provider, storage securestore.Store, bio biometric.Authenticator, logger *zap.Logger) *session.Store {
	return session.NewStore(provider, storage, bio, logger)
}

// ProvideFavourites creates the favourites store.
func ProvideFavourites() *favourites.Store {
	return favourites.NewStore()
}

// ProvideEventService creates the cached event query service.
func ProvideEventService(gateway *discovery.Client, cache *querycache.Cache) *services.EventService {
	return services.NewEventService(gateway, cache)
}

// ProvideVenueService creates the cached venue query service.
func ProvideVenueService(gateway *discovery.Client, cache *querycache.Cache) *services.VenueService {
	return services.NewVenueService(gateway, cache)
}

// ProvideTokenManager creates the session token manager.
func ProvideTokenManager(cfg *config.Config) *auth.TokenManager {
	return auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)
}

// ProvideRouter assembles handlers and middleware into the route tree.
func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	sessions *session.Store,
	tokens *auth.TokenManager,
	eventSvc *services.EventService,
	venueSvc *services.VenueService,
	favs *favourites.Store,
) chi.Router {
	return rest.NewRouter(rest.RouterDeps{
		Config:     cfg,
		Logger:     logger,
		Collector:  collector,
		Sessions:   sessions,
		Tokens:     tokens,
		Auth:       handlers.NewAuthHandler(sessions, tokens, logger),
		Events:     handlers.NewEventHandler(eventSvc, logger),
		Venues:     handlers.NewVenueHandler(venueSvc, logger),
		Favourites: handlers.NewFavouritesHandler(favs, logger),
	})
}
