// Account HTTP handlers.
//
// This file exposes the account API mounted under API_BASE_PATH:
//   - POST /accounts                                 (register, idempotent)
//   - DELETE /accounts/{nickname}
//   - GET  /accounts/{nickname}/identities           (identity fields)
//   - PUT  /accounts/{nickname}/identities/{protocol}
//   - PUT  /accounts/{nickname}/pgp                  (upload public key)
//   - POST /accounts/{nickname}/pgp/encrypt
//   - PUT  /accounts/{nickname}/follows/hidden
//   - GET  /resolve?handle=                          (remote webfinger)
//
// Writes are restricted to the account owner.
//
// A registration retried with the same Idempotency-Key by the same caller
// returns the account it created, marked Idempotency-Replayed: true, rather
// than 409.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/domain"
	"github.com/tbourn/go-fedi-core/internal/http/middleware"
	"github.com/tbourn/go-fedi-core/internal/repo"
	"github.com/tbourn/go-fedi-core/internal/services"
)

//
// DTOs
//

// RegisterAccountRequest is the JSON payload for creating an account.
type RegisterAccountRequest struct {
	// Nickname is 1-30 characters of a-z, 0-9 or _.
	Nickname string `json:"nickname" binding:"required" example:"alice"`
	// PublicKeyPEM is the account's RSA public key.
	PublicKeyPEM string `json:"public_key_pem" binding:"required" example:"-----BEGIN PUBLIC KEY-----\n..."`
	// Group registers a Group actor instead of a Person.
	Group bool `json:"group" example:"false"`
}

// AccountResponse describes a registered account.
type AccountResponse struct {
	Handle    string    `json:"handle" example:"alice@example.com"`
	Nickname  string    `json:"nickname" example:"alice"`
	ActorID   string    `json:"actor_id" example:"https://example.com/users/alice"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentitiesResponse lists identity fields keyed by protocol.
type IdentitiesResponse struct {
	Identities map[string]string `json:"identities"`
	// Kept is set on writes: false when the value was rejected and the field
	// cleared instead.
	Kept *bool `json:"kept,omitempty"`
}

// SetIdentityRequest is the JSON payload for writing an identity field.
type SetIdentityRequest struct {
	// Value is the address; empty or invalid values clear the field.
	Value string `json:"value" example:"alice@xmpp.example.org"`
}

// UploadPGPKeyRequest carries an armored public key.
type UploadPGPKeyRequest struct {
	PublicKey string `json:"public_key" binding:"required"`
}

// UploadPGPKeyResponse returns the derived fingerprint.
type UploadPGPKeyResponse struct {
	Fingerprint string `json:"fingerprint" example:"0123456789ABCDEF0123456789ABCDEF01234567"`
}

// EncryptRequest carries plaintext to encrypt for an account.
type EncryptRequest struct {
	Plaintext string `json:"plaintext" binding:"required"`
}

// EncryptResponse carries the armored ciphertext.
type EncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

// HideFollowsRequest toggles hiding of follow collections.
type HideFollowsRequest struct {
	Hidden bool `json:"hidden"`
}

func accountResponse(a *domain.Actor) AccountResponse {
	return AccountResponse{Handle: a.Handle, Nickname: a.Nickname, ActorID: a.ActorID, CreatedAt: a.CreatedAt}
}

//
// Handlers
//

// RegisterAccount godoc
// @ID          registerAccount
// @Summary     Register a local account
// @Description Creates the actor document and publishes the webfinger endpoint.
// @Description Retries carrying the same Idempotency-Key return the first result.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false  "Acting account"  example(alice)
// @Param       Idempotency-Key  header  string  false  "Client retry key"
// @Param       body             body    handlers.RegisterAccountRequest  true  "Account"
//
// @Success     201  {object}  handlers.AccountResponse
// @Header      201  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Nickname taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/v1/accounts [post]
func (h *Handlers) RegisterAccount(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nickname and public_key_pem required")
		return
	}
	ctx := c.Request.Context()
	uid := middleware.CallerKey(c)
	scope := middleware.IdempotencyScope(c)

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.d.DB != nil {
		if rec, err := repo.GetIdempotency(ctx, h.d.DB, uid, scope, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, _, err := h.d.Accounts.Get(ctx, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusCreated, accountResponse(prev))
				return
			}
		}
	}

	actor, err := h.d.Accounts.Register(ctx, req.Nickname, req.PublicKeyPEM, req.Group)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidNickname), errors.Is(err, services.ErrInvalidPublicKey):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrAccountExists):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	if idemKey != "" && h.d.DB != nil {
		if _, err := repo.CreateIdempotency(ctx, h.d.DB, uid, scope, idemKey, actor.Nickname, http.StatusCreated, h.d.IdempotencyTTL); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	middleware.LoggerFrom(c).Info().Str("handle", actor.Handle).Bool("group", req.Group).Msg("account registered")
	ok(c, http.StatusCreated, accountResponse(actor))
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete a local account
// @Description Removes the stored actor and its webfinger endpoint.
// @Tags        Accounts
//
// @Param       X-User-ID  header  string  true  "Account owner"  example(alice)
// @Param       nickname   path    string  true  "Local nickname"  example(alice)
//
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /api/v1/accounts/{nickname} [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	nickname := c.Param("nickname")
	if !owns(c, nickname) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the account owner may delete it")
		return
	}
	if err := h.d.Accounts.Delete(c.Request.Context(), nickname); err != nil {
		h.accountError(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("nickname", nickname).Msg("account deleted")
	noContent(c)
}

// ListIdentities godoc
// @ID          listIdentities
// @Summary     Identity fields of an account
// @Tags        Accounts
// @Produce     json
// @Param       nickname  path  string  true  "Local nickname"  example(alice)
// @Success     200  {object}  handlers.IdentitiesResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /api/v1/accounts/{nickname}/identities [get]
func (h *Handlers) ListIdentities(c *gin.Context) {
	fields, err := h.d.Profiles.Identities(c.Request.Context(), c.Param("nickname"))
	if err != nil {
		h.accountError(c, err)
		return
	}
	ok(c, http.StatusOK, IdentitiesResponse{Identities: fields})
}

// SetIdentity godoc
// @ID          setIdentity
// @Summary     Write an identity field
// @Description Stores the address for a protocol. Values that fail the
// @Description protocol's validation clear the field (kept=false).
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Account owner"  example(alice)
// @Param       nickname   path    string  true  "Local nickname"  example(alice)
// @Param       protocol   path    string  true  "Protocol key"    Enums(xmpp, matrix, jami, briar, cwtch, email, pgp, openpgp)
// @Param       body       body    handlers.SetIdentityRequest  true  "Value"
//
// @Success     200  {object}  handlers.IdentitiesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown protocol"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /api/v1/accounts/{nickname}/identities/{protocol} [put]
func (h *Handlers) SetIdentity(c *gin.Context) {
	nickname := c.Param("nickname")
	if !owns(c, nickname) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the account owner may edit identities")
		return
	}
	var req SetIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	fields, kept, err := h.d.Profiles.SetIdentity(c.Request.Context(), nickname, c.Param("protocol"), req.Value)
	if err != nil {
		if errors.Is(err, services.ErrUnknownProtocol) {
			fail(c, http.StatusBadRequest, ErrCodeUnknownProtocol, err.Error())
			return
		}
		h.accountError(c, err)
		return
	}
	ok(c, http.StatusOK, IdentitiesResponse{Identities: fields, Kept: &kept})
}

// UploadPGPKey godoc
// @ID          uploadPGPKey
// @Summary     Publish a PGP public key
// @Description Stores the armored key and its fingerprint on the account.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Account owner"  example(alice)
// @Param       nickname   path    string  true  "Local nickname"  example(alice)
// @Param       body       body    handlers.UploadPGPKeyRequest  true  "Key"
//
// @Success     200  {object}  handlers.UploadPGPKeyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid key"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /api/v1/accounts/{nickname}/pgp [put]
func (h *Handlers) UploadPGPKey(c *gin.Context) {
	nickname := c.Param("nickname")
	if !owns(c, nickname) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the account owner may upload keys")
		return
	}
	var req UploadPGPKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "public_key required")
		return
	}

	fp, err := h.d.Profiles.UploadPGPKey(c.Request.Context(), nickname, req.PublicKey)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPGPKey) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidPGPKey, err.Error())
			return
		}
		h.accountError(c, err)
		return
	}
	ok(c, http.StatusOK, UploadPGPKeyResponse{Fingerprint: fp})
}

// EncryptFor godoc
// @ID          encryptFor
// @Summary     Encrypt to an account's PGP key
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       nickname  path  string  true  "Local nickname"  example(alice)
// @Param       body      body  handlers.EncryptRequest  true  "Plaintext"
//
// @Success     200  {object}  handlers.EncryptResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Failure     422  {object}  handlers.ErrorResponse  "Account has no key"
// @Router      /api/v1/accounts/{nickname}/pgp/encrypt [post]
func (h *Handlers) EncryptFor(c *gin.Context) {
	var req EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "plaintext required")
		return
	}
	ct, err := h.d.Profiles.EncryptFor(c.Request.Context(), c.Param("nickname"), req.Plaintext)
	if err != nil {
		if errors.Is(err, services.ErrNoPGPKey) {
			fail(c, http.StatusUnprocessableEntity, ErrCodeNoPGPKey, err.Error())
			return
		}
		h.accountError(c, err)
		return
	}
	ok(c, http.StatusOK, EncryptResponse{Ciphertext: ct})
}

// HideFollows godoc
// @ID          hideFollows
// @Summary     Hide follow collections from other users
// @Tags        Accounts
// @Accept      json
//
// @Param       X-User-ID  header  string  true  "Account owner"  example(alice)
// @Param       nickname   path    string  true  "Local nickname"  example(alice)
// @Param       body       body    handlers.HideFollowsRequest  true  "Flag"
//
// @Success     204  {string}  string  "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /api/v1/accounts/{nickname}/follows/hidden [put]
func (h *Handlers) HideFollows(c *gin.Context) {
	nickname := c.Param("nickname")
	if !owns(c, nickname) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only the account owner may change visibility")
		return
	}
	var req HideFollowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if _, _, err := h.d.Accounts.Get(c.Request.Context(), nickname); err != nil {
		h.accountError(c, err)
		return
	}
	dir := collections.AccountDir(h.d.BaseDir, nickname, h.d.Instance.Domain)
	if err := collections.SetFollowsHidden(dir, req.Hidden); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	noContent(c)
}

// Resolve godoc
// @ID          resolveHandle
// @Summary     Resolve a remote handle over webfinger
// @Description Results are cached per account for the life of the process.
// @Tags        Discovery
// @Produce     json
//
// @Param       handle  query  string  true  "Handle"  example(@bob@remote.example)
//
// @Success     200  {object}  domain.Webfinger
// @Failure     400  {object}  handlers.ErrorResponse  "Missing handle"
// @Failure     502  {object}  handlers.ErrorResponse  "Lookup failed"
// @Router      /api/v1/resolve [get]
func (h *Handlers) Resolve(c *gin.Context) {
	handle := strings.TrimSpace(c.Query("handle"))
	if handle == "" || h.d.Resolver == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "handle required")
		return
	}
	wf, found := h.d.Resolver.Resolve(c.Request.Context(), handle)
	if !found {
		fail(c, http.StatusBadGateway, ErrCodeResolveFailed, "handle could not be resolved")
		return
	}
	ok(c, http.StatusOK, wf)
}
