// Package handlers exposes the federation endpoints (webfinger, host-meta,
// nodeinfo, actors and their collections) and the account API used to
// register accounts and edit their identity fields.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/http/middleware"
	"github.com/tbourn/go-fedi-core/internal/services"
	"github.com/tbourn/go-fedi-core/internal/webfinger"
)

//
// Service contracts (context-aware)
//

// AccountService registers and loads local accounts.
type AccountService interface {
	// Register creates a local account for nickname with the given RSA key.
	Register(ctx context.Context, nickname, publicKeyPEM string, group bool) (*domain.Actor, error)
	// Get loads a local account and its decoded actor document.
	Get(ctx context.Context, nickname string) (*domain.Actor, domain.ActorDocument, error)
	// Delete removes a local account and its webfinger endpoint.
	Delete(ctx context.Context, nickname string) error
}

// ProfileService reads and edits identity fields on local accounts.
type ProfileService interface {
	Identities(ctx context.Context, nickname string) (map[string]string, error)
	SetIdentity(ctx context.Context, nickname, key, value string) (map[string]string, bool, error)
	UploadPGPKey(ctx context.Context, nickname, armored string) (string, error)
	EncryptFor(ctx context.Context, nickname, plaintext string) (string, error)
}

// Resolver looks up remote accounts over webfinger.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (*domain.Webfinger, bool)
}

// CollectionBuilder produces collection documents for a feed.
type CollectionBuilder interface {
	Build(ctx context.Context, feed collections.Feed, req collections.Request) any
}

// HTMLRenderer renders a collection for browsers. It is optional; without
// one, browsers receive the ActivityPub document.
type HTMLRenderer interface {
	RenderCollection(nickname string, feed collections.Feed, doc any) ([]byte, error)
}

//
// Handler wiring
//

// Deps carries everything the handlers need. DB is optional and only used
// for idempotent replays and nodeinfo statistics.
type Deps struct {
	DB          *gorm.DB
	Accounts    AccountService
	Profiles    ProfileService
	Resolver    Resolver
	Endpoints   *webfinger.Endpoints
	Collections CollectionBuilder
	HTML        HTMLRenderer

	Instance    services.Instance
	BaseDir     string
	OnionDomain string

	FollowsPerPage       int
	UnauthorizedPageSize int
	InactiveDays         int

	IdempotencyTTL   time.Duration
	OpenRegistration bool
	Version          string
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	d Deps
}

// New constructs and returns a Handlers instance bound to d.
func New(d Deps) *Handlers {
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = 24 * time.Hour
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return &Handlers{d: d}
}

// owns reports whether the current user is the owner of nickname.
func owns(c *gin.Context, nickname string) bool {
	id, ok := middleware.Caller(c)
	return ok && strings.EqualFold(id, nickname)
}
