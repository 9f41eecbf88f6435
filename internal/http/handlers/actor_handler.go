// Actor HTTP handlers.
//
// This file serves local actors and their collections:
//   - GET /users/{nickname}                 (actor document)
//   - GET /users/{nickname}/{collection}    (following, followers, shares,
//     moved, inactive; optional ?page=N)
//
// Collections are content-negotiated: browsers asking for text/html are
// handed to the HTMLRenderer when one is configured.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-fedi-core/internal/collections"
	"github.com/tbourn/go-fedi-core/internal/http/middleware"
	"github.com/tbourn/go-fedi-core/internal/services"
)

// GetActor godoc
// @ID          getActor
// @Summary     Actor document
// @Tags        Actors
// @Produce     application/activity+json
//
// @Param       nickname  path  string  true  "Local nickname"  example(alice)
//
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /users/{nickname} [get]
func (h *Handlers) GetActor(c *gin.Context) {
	nickname := c.Param("nickname")
	_, doc, err := h.d.Accounts.Get(c.Request.Context(), nickname)
	if err != nil {
		h.accountError(c, err)
		return
	}
	document(c, http.StatusOK, ContentTypeActivity, doc)
}

// GetCollection godoc
// @ID          getCollection
// @Summary     Actor collection
// @Description Without ?page the OrderedCollection summary is returned; with
// @Description ?page=N the page. Only the owner sees hidden follows and gets
// @Description full-size pages.
// @Tags        Actors
// @Produce     application/activity+json,text/html
//
// @Param       X-User-ID   header  string  false  "Acting account"  example(alice)
// @Param       nickname    path    string  true   "Local nickname"         example(alice)
// @Param       collection  path    string  true   "Collection"             Enums(following, followers, shares, moved, inactive)
// @Param       page        query   int     false  "Page number"            minimum(1)
//
// @Success     200  {object}  domain.OrderedCollectionPage
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account or collection"
// @Router      /users/{nickname}/{collection} [get]
func (h *Handlers) GetCollection(c *gin.Context) {
	nickname := c.Param("nickname")
	feed, known := collections.ParseFeed(c.Param("collection"))
	if !known || h.d.Collections == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "collection not found")
		return
	}
	ctx := c.Request.Context()
	if _, _, err := h.d.Accounts.Get(ctx, nickname); err != nil {
		h.accountError(c, err)
		return
	}

	inst := h.d.Instance
	doc := h.d.Collections.Build(ctx, feed, collections.Request{
		BaseDir:              h.d.BaseDir,
		Nickname:             nickname,
		Domain:               inst.Domain,
		Port:                 inst.Port,
		HTTPPrefix:           inst.HTTPPrefix,
		Path:                 c.Request.URL.RequestURI(),
		Authorized:           owns(c, nickname),
		ItemsPerPage:         h.d.FollowsPerPage,
		UnauthorizedPageSize: h.d.UnauthorizedPageSize,
		InactiveDays:         h.d.InactiveDays,
	})

	if h.d.HTML != nil && wantsHTML(c.GetHeader("Accept")) {
		body, err := h.d.HTML.RenderCollection(nickname, feed, doc)
		if err == nil {
			c.Data(http.StatusOK, "text/html; charset=utf-8", body)
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Str("feed", string(feed)).Msg("html render failed; serving json")
	}
	document(c, http.StatusOK, ContentTypeActivity, doc)
}

// wantsHTML reports whether the Accept header asks for a page rather than
// a JSON document.
func wantsHTML(accept string) bool {
	a := strings.ToLower(accept)
	return strings.Contains(a, "text/html") && !strings.Contains(a, "json")
}

// accountError maps account lookup errors to responses.
func (h *Handlers) accountError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrAccountNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
}
