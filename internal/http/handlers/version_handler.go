// Version HTTP handlers.
//
//   - POST /posts/{id}/iterate                      (derive a new selected version)
//   - GET  /posts/{id}/versions                     (full history, conditional via ETag)
//   - POST /posts/{id}/versions/{versionId}/select  (switch the selected version)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/domain"
)

// IterateResponse is the body of POST /posts/{id}/iterate.
type IterateResponse = domain.IterateResponse

// VersionsResponse is the body of GET /posts/{id}/versions.
type VersionsResponse struct {
	Data domain.VersionList `json:"data"`
}

// Iterate godoc
// @ID          iteratePost
// @Summary     Iterate on a post
// @Description Rewrites the selected version using free-form feedback or a fixed
// @Description iteration type (shorter, longer, casual, professional, hook). Exactly
// @Description one of the two is required. The new version becomes the selected one.
// @Tags        Versions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string                 false  "Key reused by every retry of one logical call"
// @Param       id               path    string                 true   "Post ID"  format(uuid)
// @Param       body             body    domain.IterateRequest  true   "Iteration request"
//
// @Success     201  {object}  domain.IterateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limit exceeded"
// @Failure     502  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /posts/{id}/iterate [post]
func (h *Handlers) Iterate(c *gin.Context) {
	if h.replay(c) {
		return
	}

	var req domain.IterateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	req.Feedback = strings.TrimSpace(req.Feedback)

	res, rl, err := h.ver.Iterate(c.Request.Context(), userID(c), c.Param("id"), req)
	if err != nil {
		h.failFor(c, err, ErrCodeGenerationFailed)
		return
	}
	h.respond(c, http.StatusCreated, IterateResponse{Message: "Version created", Data: *res, RateLimit: rl})
}

// ListVersions godoc
// @ID          listVersions
// @Summary     List the versions of a post
// @Description Returns every version in version order. Supports If-None-Match with
// @Description the weak ETag of a previous response.
// @Tags        Versions
// @Produce     json
// @Security    BearerAuth
//
// @Param       id             path    string  true   "Post ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "ETag of a previous response"
//
// @Success     200  {object}  handlers.VersionsResponse
// @Success     304  "Not modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Post not found"
// @Router      /posts/{id}/versions [get]
func (h *Handlers) ListVersions(c *gin.Context) {
	ctx := c.Request.Context()
	postID := c.Param("id")

	count, maxTS, err := h.ver.Stats(ctx, userID(c), postID)
	if err != nil {
		h.failFor(c, err, ErrCodeListFailed)
		return
	}
	// selection flips touch updated_at, so nanosecond precision tells them apart
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	etag := fmt.Sprintf(`W/"versions:%s:%d:%d"`, postID, count, ts)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	list, err := h.ver.List(ctx, userID(c), postID)
	if err != nil {
		h.failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, VersionsResponse{Data: list})
}

// SelectVersion godoc
// @ID          selectVersion
// @Summary     Select a version
// @Description Marks the version as the selected one; the post text follows it.
// @Tags        Versions
// @Security    BearerAuth
//
// @Param       id         path  string  true  "Post ID"     format(uuid)
// @Param       versionId  path  string  true  "Version ID"  format(uuid)
//
// @Success     204  "Selected"
// @Failure     404  {object}  handlers.ErrorResponse  "Post or version not found"
// @Router      /posts/{id}/versions/{versionId}/select [post]
func (h *Handlers) SelectVersion(c *gin.Context) {
	err := h.ver.Select(c.Request.Context(), userID(c), c.Param("id"), c.Param("versionId"))
	if err != nil {
		h.failFor(c, err, ErrCodeSelectFailed)
		return
	}
	noContent(c)
}
