// Generation HTTP handlers.
//
//   - POST /generate         (single draft, or a batch when variants >= 2)
//   - GET  /generate/status  (generation quota of the caller)
//
// POST /generate honors Idempotency-Key: a retry with the same key gets the
// recorded response with `Idempotency-Replayed: true` and spends no quota.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Generate godoc
// @ID          generate
// @Summary     Generate a post
// @Description Drafts a post from a profile and a raw idea. With `variants` >= 2 the
// @Description response carries one variant per writing approach instead of a single post.
// @Tags        Generation
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string               false  "Key reused by every retry of one logical call"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    domain.GenerateBody  true   "Generation request"
//
// @Success     201  {object}  domain.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile, platform or project not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limit exceeded"
// @Failure     502  {object}  handlers.ErrorResponse  "Generation failed"
// @Router      /generate [post]
func (h *Handlers) Generate(c *gin.Context) {
	if h.replay(c) {
		return
	}

	var body domain.GenerateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	var (
		resp *domain.GenerateResponse
		err  error
	)
	if body.Variants >= domain.MinVariants {
		resp, err = h.gen.GenerateVariants(ctx, userID(c), body.GenerateRequest, body.Variants)
	} else {
		resp, err = h.gen.Generate(ctx, userID(c), body.GenerateRequest)
	}
	if err != nil {
		h.failFor(c, err, ErrCodeGenerationFailed)
		return
	}
	h.respond(c, http.StatusCreated, resp)
}

// GenerationStatus godoc
// @ID          generationStatus
// @Summary     Generation quota
// @Description Remaining generations in the current window and when it resets.
// @Tags        Generation
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.RateLimitStatus
// @Router      /generate/status [get]
func (h *Handlers) GenerationStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.gen.Status(userID(c)))
}
