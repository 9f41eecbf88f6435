// Package services – AccountService
//
// This file implements the AccountService, which registers local accounts:
// it builds the ActivityPub actor document, persists it through the actor
// repository and publishes the account's webfinger endpoint on disk.
// Key generation is out of scope; callers supply the RSA public key.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/utils"
	"github.com/tbourn/go-fedi-core/internal/webfinger"
)

// ActorRepo defines the repository contract required by the account and
// profile services.
type ActorRepo interface {
	// SaveActor inserts or replaces the stored document for handle.
	SaveActor(ctx context.Context, db *gorm.DB, handle, nickname string, doc domain.ActorDocument) (*domain.Actor, error)

	// GetActor fetches the stored actor for handle.
	GetActor(ctx context.Context, db *gorm.DB, handle string) (*domain.Actor, error)

	// ActorExists reports whether handle is taken.
	ActorExists(ctx context.Context, db *gorm.DB, handle string) (bool, error)

	// ListActorHandles returns a page of stored handles, oldest first.
	ListActorHandles(ctx context.Context, db *gorm.DB, offset, limit int) ([]string, error)

	// CountActors returns the number of stored actors.
	CountActors(ctx context.Context, db *gorm.DB) (int64, error)

	// DeleteActor removes the actor for handle (gorm.ErrRecordNotFound on miss).
	DeleteActor(ctx context.Context, db *gorm.DB, handle string) error
}

// Instance carries the public addressing of this server.
type Instance struct {
	Domain     string // without port
	Port       int
	HTTPPrefix string
}

// FullDomain returns the domain with a non-default port appended.
func (i Instance) FullDomain() string { return utils.FullDomain(i.Domain, i.Port) }

// Handle returns "nickname@domain" for a local nickname.
func (i Instance) Handle(nickname string) string {
	return strings.ToLower(nickname) + "@" + i.Domain
}

// ActorURL returns the actor id of a local nickname ("!" prefix for groups).
func (i Instance) ActorURL(nickname string) string {
	return utils.ActorURL(i.HTTPPrefix, i.FullDomain(), nickname)
}

// AccountService registers and loads local accounts.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the actor repository used by this service.
	Repo ActorRepo
	// Endpoints stores webfinger documents under the instance base directory.
	Endpoints *webfinger.Endpoints
	// Instance is the public addressing used to build ids.
	Instance Instance
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, r ActorRepo, ep *webfinger.Endpoints, inst Instance) *AccountService {
	if inst.HTTPPrefix == "" {
		inst.HTTPPrefix = "https"
	}
	return &AccountService{DB: db, Repo: r, Endpoints: ep, Instance: inst}
}

var nicknameRE = regexp.MustCompile(`^[a-z0-9_]{1,30}$`)

// Register creates a local account. Group accounts get a Group actor under
// /c/{nickname}. It returns ErrInvalidNickname, ErrAccountExists,
// ErrInvalidPublicKey or ErrEndpointWrite for predictable failures.
func (s *AccountService) Register(ctx context.Context, nickname, publicKeyPEM string, group bool) (*domain.Actor, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Register",
		trace.WithAttributes(
			attribute.String("account.nickname", nickname),
			attribute.Bool("account.group", group),
		),
	)
	defer span.End()

	nickname = strings.TrimSpace(nickname)
	if !nicknameRE.MatchString(nickname) {
		return nil, ErrInvalidNickname
	}
	handle := s.Instance.Handle(nickname)

	exists, err := s.Repo.ActorExists(ctx, s.DB, handle)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exists check failed")
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	wf, err := webfinger.CreateEndpoint(webfinger.Account{
		Nickname:     nickname,
		Domain:       s.Instance.Domain,
		Port:         s.Instance.Port,
		HTTPPrefix:   s.Instance.HTTPPrefix,
		PublicKeyPEM: publicKeyPEM,
		Group:        group,
	})
	if err != nil {
		if errors.Is(err, webfinger.ErrBadPublicKey) {
			return nil, ErrInvalidPublicKey
		}
		return nil, err
	}

	actor, err := s.Repo.SaveActor(ctx, s.DB, handle, nickname, s.actorDocument(nickname, publicKeyPEM, group))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, fmt.Errorf("save actor: %w", err)
	}

	if !s.Endpoints.Save(nickname, s.Instance.Domain, s.Instance.Port, wf) {
		span.SetStatus(codes.Error, "endpoint write failed")
		// drop the row so the nickname stays free for a retry
		if err := s.Repo.DeleteActor(ctx, s.DB, handle); err != nil {
			log.Error().Err(err).Str("handle", handle).Msg("register: rollback of actor row failed")
		}
		return nil, ErrEndpointWrite
	}
	// feeds read from the account directory; create it eagerly
	if err := os.MkdirAll(collections.AccountDir(s.Endpoints.BaseDir, nickname, s.Instance.Domain), 0o755); err != nil {
		log.Warn().Err(err).Str("handle", handle).Msg("register: cannot create account directory")
	}

	return actor, nil
}

// Get loads the stored actor of a local nickname and decodes its document.
func (s *AccountService) Get(ctx context.Context, nickname string) (*domain.Actor, domain.ActorDocument, error) {
	a, err := s.Repo.GetActor(ctx, s.DB, s.Instance.Handle(nickname))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, err
	}
	doc, err := a.Document()
	if err != nil {
		return nil, nil, fmt.Errorf("decode actor %s: %w", a.Handle, err)
	}
	return a, doc, nil
}

// Delete removes a local account and its webfinger endpoint. Files under the
// account directory are left in place.
func (s *AccountService) Delete(ctx context.Context, nickname string) error {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("account.nickname", nickname)),
	)
	defer span.End()

	if err := s.Repo.DeleteActor(ctx, s.DB, s.Instance.Handle(nickname)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		span.RecordError(err)
		return err
	}
	if !s.Endpoints.Remove(strings.ToLower(nickname), s.Instance.Domain, s.Instance.Port) {
		span.SetStatus(codes.Error, "endpoint remove failed")
		return ErrEndpointWrite
	}
	return nil
}

// republishBatch bounds how many handles RepublishEndpoints reads at once.
const republishBatch = 100

// RepublishEndpoints recreates missing webfinger files from the stored actor
// documents, including identity aliases, and returns how many it wrote.
// Actors whose document carries no usable key are skipped.
func (s *AccountService) RepublishEndpoints(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "RepublishEndpoints")
	defer span.End()

	total, err := s.Repo.CountActors(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	written := 0
	for offset := 0; offset < int(total); offset += republishBatch {
		handles, err := s.Repo.ListActorHandles(ctx, s.DB, offset, republishBatch)
		if err != nil {
			span.RecordError(err)
			return written, err
		}
		for _, h := range handles {
			nickname, _, _ := strings.Cut(h, "@")
			if _, ok := s.Endpoints.Load(nickname + "@" + s.Instance.FullDomain()); ok {
				continue
			}
			if s.republish(ctx, nickname) {
				written++
			}
		}
		if len(handles) < republishBatch {
			break
		}
	}
	span.SetAttributes(attribute.Int64("actors.total", total), attribute.Int("endpoints.written", written))
	return written, nil
}

func (s *AccountService) republish(ctx context.Context, nickname string) bool {
	_, doc, err := s.Get(ctx, nickname)
	if err != nil {
		return false
	}
	key, _ := doc["publicKey"].(map[string]any)
	pemText, _ := key["publicKeyPem"].(string)
	wf, err := webfinger.CreateEndpoint(webfinger.Account{
		Nickname:     nickname,
		Domain:       s.Instance.Domain,
		Port:         s.Instance.Port,
		HTTPPrefix:   s.Instance.HTTPPrefix,
		PublicKeyPEM: pemText,
		Group:        doc["type"] == "Group",
	})
	if err != nil || !s.Endpoints.Save(nickname, s.Instance.Domain, s.Instance.Port, wf) {
		return false
	}
	s.Endpoints.UpdateFromProfile(nickname, s.Instance.Domain, s.Instance.Port, doc)
	return true
}

// Save persists doc for a local nickname.
func (s *AccountService) Save(ctx context.Context, nickname string, doc domain.ActorDocument) error {
	_, err := s.Repo.SaveActor(ctx, s.DB, s.Instance.Handle(nickname), nickname, doc)
	return err
}

func (s *AccountService) actorDocument(nickname, publicKeyPEM string, group bool) domain.ActorDocument {
	typ, idNick := "Person", nickname
	if group {
		typ, idNick = "Group", "!"+nickname
	}
	id := s.Instance.ActorURL(idNick)
	return domain.ActorDocument{
		"@context": []any{
			domain.ActivityStreamsContext,
			"https://w3id.org/security/v1",
			map[string]any{
				"schema":        "http://schema.org#",
				"PropertyValue": "schema:PropertyValue",
				"value":         "schema:value",
			},
		},
		"id":                id,
		"type":              typ,
		"preferredUsername": nickname,
		"name":              nickname,
		"url":               s.Instance.HTTPPrefix + "://" + s.Instance.FullDomain() + "/@" + nickname,
		"inbox":             id + "/inbox",
		"outbox":            id + "/outbox",
		"followers":         id + "/followers",
		"following":         id + "/following",
		"shares":            id + "/shares",
		"discoverable":      true,
		"publicKey": map[string]any{
			"id":           id + "#main-key",
			"owner":        id,
			"publicKeyPem": publicKeyPEM,
		},
		"attachment": []any{},
	}
}
