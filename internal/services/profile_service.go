// Package services – ProfileService
//
// This file implements the ProfileService, which reads and edits the
// identity fields (XMPP, Matrix, PGP and friends) stored in an account's
// attachment list. Every write goes through the identity codec, so an
// invalid value clears the field instead of failing the request. After a
// write the account's webfinger aliases are refreshed.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/identity"
	"github.com/tbourn/go-fedi-core/internal/pgp"
)

// ProfileService implements the identity-field use-cases.
type ProfileService struct {
	Accounts *AccountService
	// Cipher encrypts for an account's published key.
	Cipher pgp.Cipher
	Log    zerolog.Logger
}

// NewProfileService constructs a ProfileService. A nil cipher selects an
// OpenPGP implementation without a private keyring.
func NewProfileService(accounts *AccountService, cipher pgp.Cipher, log zerolog.Logger) *ProfileService {
	if cipher == nil {
		cipher, _ = pgp.New("")
	}
	return &ProfileService{Accounts: accounts, Cipher: cipher, Log: log}
}

// Identities returns every identity field present on the account.
func (s *ProfileService) Identities(ctx context.Context, nickname string) (map[string]string, error) {
	_, doc, err := s.Accounts.Get(ctx, nickname)
	if err != nil {
		return nil, err
	}
	return identity.Fields(doc), nil
}

// SetIdentity stores value under the protocol named by key. Invalid or
// empty values delete the field. It returns the resulting identity fields
// and whether the value was kept.
func (s *ProfileService) SetIdentity(ctx context.Context, nickname, key, value string) (map[string]string, bool, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "SetIdentity",
		trace.WithAttributes(
			attribute.String("account.nickname", nickname),
			attribute.String("identity.protocol", key),
		),
	)
	defer span.End()

	d, ok := identity.ByKey(strings.ToLower(strings.TrimSpace(key)))
	if !ok {
		return nil, false, ErrUnknownProtocol
	}
	_, doc, err := s.Accounts.Get(ctx, nickname)
	if err != nil {
		return nil, false, err
	}

	doc = identity.Set(doc, d, value)
	if err := s.Accounts.Save(ctx, nickname, doc); err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	s.refreshAliases(nickname, doc)

	fields := identity.Fields(doc)
	_, kept := fields[d.Key]
	span.SetAttributes(attribute.Bool("identity.kept", kept))
	return fields, kept, nil
}

// UploadPGPKey stores an armored public key and its fingerprint on the
// account, replacing previous values. It returns the fingerprint.
func (s *ProfileService) UploadPGPKey(ctx context.Context, nickname, armored string) (string, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "UploadPGPKey",
		trace.WithAttributes(attribute.String("account.nickname", nickname)),
	)
	defer span.End()

	block, ok := identity.ExtractPublicKeyBlock(armored)
	if !ok {
		return "", ErrInvalidPGPKey
	}
	fp, err := pgp.Fingerprint(block)
	if err != nil {
		return "", ErrInvalidPGPKey
	}

	_, doc, err := s.Accounts.Get(ctx, nickname)
	if err != nil {
		return "", err
	}
	doc = identity.Set(doc, identity.PGPKey, block)
	doc = identity.Set(doc, identity.PGPFingerprint, fp)
	if err := s.Accounts.Save(ctx, nickname, doc); err != nil {
		span.RecordError(err)
		return "", err
	}
	s.refreshAliases(nickname, doc)
	return fp, nil
}

// EncryptFor encrypts plaintext to the PGP key published by the account.
func (s *ProfileService) EncryptFor(ctx context.Context, nickname, plaintext string) (string, error) {
	_, doc, err := s.Accounts.Get(ctx, nickname)
	if err != nil {
		return "", err
	}
	key, ok := identity.Get(doc, identity.PGPKey)
	if !ok {
		return "", ErrNoPGPKey
	}
	return s.Cipher.Encrypt(plaintext, key)
}

func (s *ProfileService) refreshAliases(nickname string, doc domain.ActorDocument) {
	inst := s.Accounts.Instance
	if s.Accounts.Endpoints == nil {
		return
	}
	if s.Accounts.Endpoints.UpdateFromProfile(nickname, inst.Domain, inst.Port, doc) {
		s.Log.Debug().Str("nickname", nickname).Msg("webfinger aliases refreshed")
	}
}
