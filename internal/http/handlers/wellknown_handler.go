// Discovery HTTP handlers.
//
// This file exposes the well-known endpoints remote servers use to find
// local accounts:
//   - GET /.well-known/webfinger   (jrd+json, 404 on miss)
//   - GET /.well-known/host-meta   (xrd+xml)
//   - GET /.well-known/nodeinfo    (discovery document)
//   - GET /nodeinfo/2.0            (usage statistics, weak ETag)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-fedi-core/internal/repo"
	"github.com/tbourn/go-fedi-core/internal/utils"
	"github.com/tbourn/go-fedi-core/internal/webfinger"
)

// NodeInfo is the nodeinfo 2.0 document.
type NodeInfo struct {
	Version           string           `json:"version" example:"2.0"`
	Software          NodeInfoSoftware `json:"software"`
	Protocols         []string         `json:"protocols"`
	Services          NodeInfoServices `json:"services"`
	OpenRegistrations bool             `json:"openRegistrations"`
	Usage             NodeInfoUsage    `json:"usage"`
	Metadata          map[string]any   `json:"metadata"`
}

// NodeInfoSoftware names the server software.
type NodeInfoSoftware struct {
	Name    string `json:"name" example:"go-fedi-core"`
	Version string `json:"version" example:"1.0.0"`
}

// NodeInfoServices lists third-party services; always empty here.
type NodeInfoServices struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

// NodeInfoUsage carries account statistics.
type NodeInfoUsage struct {
	Users      NodeInfoUsers `json:"users"`
	LocalPosts int64         `json:"localPosts"`
}

// NodeInfoUsers counts local accounts.
type NodeInfoUsers struct {
	Total          int64 `json:"total"`
	ActiveMonth    int64 `json:"activeMonth"`
	ActiveHalfyear int64 `json:"activeHalfyear"`
}

// Webfinger godoc
// @ID          webfinger
// @Summary     Webfinger lookup
// @Description Returns the stored JRD document for a local account. Requests
// @Description made through the onion domain get onion links.
// @Tags        Discovery
// @Produce     application/jrd+json
//
// @Param       resource  query  string  true  "acct: URI"  example(acct:alice@example.com)
//
// @Success     200  {object}  domain.Webfinger
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown account"
// @Router      /.well-known/webfinger [get]
func (h *Handlers) Webfinger(c *gin.Context) {
	if h.d.Endpoints == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		return
	}
	inst := h.d.Instance
	onion := h.d.OnionDomain
	data, found := h.d.Endpoints.Lookup(c.Request.URL.RequestURI(), webfinger.LookupOptions{
		Domain:      inst.Domain,
		Port:        inst.Port,
		OnionDomain: onion,
		Onionify:    onion != "" && strings.EqualFold(utils.RemovePort(c.Request.Host), onion),
	})
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		return
	}
	// RFC 7033 asks servers to allow cross-origin webfinger reads
	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(http.StatusOK, ContentTypeJRD+"; charset=utf-8", data)
}

// HostMeta godoc
// @ID          hostMeta
// @Summary     Host metadata
// @Description XRD document pointing at the webfinger template.
// @Tags        Discovery
// @Produce     application/xrd+xml
// @Success     200  {string}  string  "XRD document"
// @Router      /.well-known/host-meta [get]
func (h *Handlers) HostMeta(c *gin.Context) {
	inst := h.d.Instance
	body, err := webfinger.HostMeta(inst.HTTPPrefix, inst.FullDomain())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Data(http.StatusOK, ContentTypeXRD+"; charset=utf-8", body)
}

// NodeInfoDiscovery godoc
// @ID          nodeInfoDiscovery
// @Summary     Nodeinfo discovery
// @Tags        Discovery
// @Produce     json
// @Success     200  {object}  map[string]any
// @Router      /.well-known/nodeinfo [get]
func (h *Handlers) NodeInfoDiscovery(c *gin.Context) {
	inst := h.d.Instance
	ok(c, http.StatusOK, webfinger.NodeInfoDiscovery(inst.HTTPPrefix, inst.FullDomain()))
}

// NodeInfo godoc
// @ID          nodeInfo
// @Summary     Nodeinfo 2.0
// @Description Usage statistics. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Discovery
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.NodeInfo
// @Header      200  {string}  ETag           "Weak ETag for current statistics"
// @Header      200  {string}  Last-Modified  "Time of the latest account change"
// @Success     304  {string}  string  "Not Modified"
// @Router      /nodeinfo/2.0 [get]
func (h *Handlers) NodeInfo(c *gin.Context) {
	ctx := c.Request.Context()
	doc := NodeInfo{
		Version:           "2.0",
		Software:          NodeInfoSoftware{Name: "go-fedi-core", Version: h.d.Version},
		Protocols:         []string{"activitypub"},
		Services:          NodeInfoServices{Inbound: []string{}, Outbound: []string{}},
		OpenRegistrations: h.d.OpenRegistration,
		Metadata:          map[string]any{},
	}

	if db := h.d.DB; db != nil {
		count, maxTS, err := repo.ActorsStats(ctx, db)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
			c.Header("Last-Modified", maxTS.UTC().Format(http.TimeFormat))
		}
		etag := fmt.Sprintf(`W/"nodeinfo:%d:%d"`, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}

		now := time.Now().UTC()
		month, _ := repo.ActiveActorsSince(ctx, db, now.AddDate(0, -1, 0))
		half, _ := repo.ActiveActorsSince(ctx, db, now.AddDate(0, -6, 0))
		doc.Usage.Users = NodeInfoUsers{Total: count, ActiveMonth: month, ActiveHalfyear: half}
	}

	ok(c, http.StatusOK, doc)
}
