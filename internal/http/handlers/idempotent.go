package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/http/middleware"
	"github.com/tbourn/go-postgen/internal/services"
)

// replay serves the stored response when the idempotency middleware found
// one for this request. It reports whether the request was answered.
func (h *Handlers) replay(c *gin.Context) bool {
	if h.idem == nil || !middleware.IsReplay(c) {
		return false
	}
	key, _ := middleware.GetIdempotencyKey(c)
	stored, found, err := h.idem.Lookup(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key)
	if err != nil || !found {
		return false
	}
	c.Header(middleware.HeaderIdempotencyReplayed, "true")
	c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
	return true
}

// respond writes body as JSON and, when the request carries an
// Idempotency-Key, records it for later replays. Recording is best effort.
func (h *Handlers) respond(c *gin.Context, status int, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "encode response")
		return
	}
	if key, ok := middleware.GetIdempotencyKey(c); ok && h.idem != nil {
		resp := services.StoredResponse{Status: status, Body: raw}
		if err := h.idem.Save(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key, resp); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotent response")
		}
	}
	c.Data(status, "application/json; charset=utf-8", raw)
}
