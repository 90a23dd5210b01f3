// Reference data HTTP handlers: GET /profiles, /platforms and /projects.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/domain"
)

// ListProfiles godoc
// @ID          listProfiles
// @Summary     List profiles
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Envelope[[]domain.Profile]
// @Router      /profiles [get]
func (h *Handlers) ListProfiles(c *gin.Context) {
	ps, err := h.cat.Profiles(c.Request.Context(), userID(c))
	if err != nil {
		h.failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[[]domain.Profile]{Data: ps})
}

// ListPlatforms godoc
// @ID          listPlatforms
// @Summary     List platforms
// @Tags        Catalog
// @Produce     json
// @Success     200  {object}  domain.Envelope[[]domain.Platform]
// @Router      /platforms [get]
func (h *Handlers) ListPlatforms(c *gin.Context) {
	ps, err := h.cat.Platforms(c.Request.Context())
	if err != nil {
		h.failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[[]domain.Platform]{Data: ps})
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List projects
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Envelope[[]domain.Project]
// @Router      /projects [get]
func (h *Handlers) ListProjects(c *gin.Context) {
	ps, err := h.cat.Projects(c.Request.Context(), userID(c))
	if err != nil {
		h.failFor(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, domain.Envelope[[]domain.Project]{Data: ps})
}
