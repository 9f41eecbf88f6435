// Package httpapi assembles the Gin engine: the middleware chain, the
// federation endpoints and the versioned account API.
//
// Federation routes live at fixed paths (/.well-known/*, /nodeinfo/2.0,
// /users/*, /c/*). The account API is mounted under API_BASE_PATH.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/docs"
	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/config"
	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/http/handlers"
	"github.com/tbourn/go-fedi-core/internal/http/middleware"
	"github.com/tbourn/go-fedi-core/internal/repo"
	"github.com/tbourn/go-fedi-core/internal/services"
	"github.com/tbourn/go-fedi-core/internal/webfinger"
)

const maxBodyBytes = 1 << 20

// Options carries the collaborators RegisterRoutes does not build itself.
// A nil Resolver disables /resolve lookups (400). Republish recreates
// missing webfinger files from the actor store before routes are served.
type Options struct {
	Resolver  handlers.Resolver
	HTML      handlers.HTMLRenderer
	Version   string
	Republish bool
}

// RegisterRoutes installs the middleware chain and every route on r.
//
// Order: tracing, request id, caller header (TRUST_CALLER_HEADER only),
// access log, recovery, body cap, metrics, gzip, idempotency, rate limit,
// CORS, security headers. Idempotency runs before the limiter so replays
// can bypass it. /metrics sits ahead of gzip since promhttp compresses on
// its own.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config, opts Options) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName), middleware.RequestID())
	if cfg.Security.TrustCallerHeader {
		r.Use(middleware.TrustCallerHeader())
	}
	r.Use(
		middleware.AccessLog(middleware.AccessLogOptions{MaskHeaders: []string{"X-API-Key"}}),
		middleware.Recovery(),
		limitBody(maxBodyBytes),
		middleware.Metrics(),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(
		gzip.Gzip(gzip.DefaultCompression),
		middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(db)),
		middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByCaller()).Handler(),
	)
	r.Use(corsHandlers(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
		OnionDomain:  cfg.OnionDomain,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.Host = cfg.FullDomain()
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := newHandlers(db, cfg, opts)

	r.GET("/.well-known/webfinger", h.Webfinger)
	r.GET("/.well-known/host-meta", h.HostMeta)
	r.GET("/.well-known/nodeinfo", h.NodeInfoDiscovery)
	r.GET("/nodeinfo/2.0", h.NodeInfo)
	r.GET("/users/:nickname", h.GetActor)
	r.GET("/users/:nickname/:collection", h.GetCollection)
	r.GET("/c/:nickname", h.GetActor)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.POST("/accounts", h.RegisterAccount)
	api.DELETE("/accounts/:nickname", h.DeleteAccount)
	api.GET("/accounts/:nickname/identities", h.ListIdentities)
	api.PUT("/accounts/:nickname/identities/:protocol", h.SetIdentity)
	api.PUT("/accounts/:nickname/pgp", h.UploadPGPKey)
	api.POST("/accounts/:nickname/pgp/encrypt", h.EncryptFor)
	api.PUT("/accounts/:nickname/follows/hidden", h.HideFollows)
	api.GET("/resolve", h.Resolve)
}

// newHandlers builds the services over db and the on-disk layout under
// cfg.BaseDir, republishing webfinger endpoints first when asked.
func newHandlers(db *gorm.DB, cfg config.Config, opts Options) *handlers.Handlers {
	inst := services.Instance{Domain: cfg.Domain, Port: cfg.DomainPort, HTTPPrefix: cfg.HTTPPrefix}
	ep := webfinger.NewEndpoints(cfg.BaseDir, log.Logger)
	accounts := services.NewAccountService(db, actorStore{}, ep, inst)

	if opts.Republish {
		switch n, err := accounts.RepublishEndpoints(context.Background()); {
		case err != nil:
			log.Error().Err(err).Msg("republishing webfinger endpoints failed")
		case n > 0:
			log.Info().Int("endpoints", n).Msg("republished missing webfinger endpoints")
		}
	}

	return handlers.New(handlers.Deps{
		DB:                   db,
		Accounts:             accounts,
		Profiles:             services.NewProfileService(accounts, nil, log.Logger),
		Resolver:             opts.Resolver,
		Endpoints:            ep,
		Collections:          collections.NewPaginator(log.Logger),
		HTML:                 opts.HTML,
		Instance:             inst,
		BaseDir:              cfg.BaseDir,
		OnionDomain:          cfg.OnionDomain,
		FollowsPerPage:       cfg.FollowsPerPage,
		UnauthorizedPageSize: cfg.UnauthorizedPageSize,
		InactiveDays:         cfg.InactiveDays,
		IdempotencyTTL:       cfg.IdempotencyTTL,
		OpenRegistration:     cfg.OpenRegistration,
		Version:              opts.Version,
	})
}

// idempotencyLookup reports whether an unexpired record exists in db.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, caller, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, caller, scope, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return true, nil
	}
}

// corsHandlers allows any origin when origins is empty. Otherwise only the
// listed origins are echoed back, with Vary: Origin.
func corsHandlers(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "Signature",
			middleware.HeaderCaller, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", "ETag"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// cors only answers requests that carry Origin; peers fetching
		// actor documents often do not.
		star := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{star, cors.New(base)}
	}

	base.AllowOrigins = origins
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	echo := func(c *gin.Context) {
		if o := c.GetHeader("Origin"); allowed[o] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", o)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Next()
	}
	return []gin.HandlerFunc{echo, cors.New(base)}
}

// limitBody caps request bodies at n bytes; reads past the cap fail.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" and "" as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "/" {
		prefix = ""
	}
	return r.Group(prefix)
}

// actorStore satisfies services.ActorRepo with the repo package functions.
type actorStore struct{}

func (actorStore) SaveActor(ctx context.Context, db *gorm.DB, handle, nickname string, doc domain.ActorDocument) (*domain.Actor, error) {
	return repo.SaveActor(ctx, db, handle, nickname, doc)
}

func (actorStore) GetActor(ctx context.Context, db *gorm.DB, handle string) (*domain.Actor, error) {
	return repo.GetActor(ctx, db, handle)
}

func (actorStore) ActorExists(ctx context.Context, db *gorm.DB, handle string) (bool, error) {
	return repo.ActorExists(ctx, db, handle)
}

func (actorStore) ListActorHandles(ctx context.Context, db *gorm.DB, offset, limit int) ([]string, error) {
	return repo.ListActorHandles(ctx, db, offset, limit)
}

func (actorStore) CountActors(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountActors(ctx, db)
}

func (actorStore) DeleteActor(ctx context.Context, db *gorm.DB, handle string) error {
	return repo.DeleteActor(ctx, db, handle)
}
