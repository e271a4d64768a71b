package handler

import (
	"net/http"

	"admin-dashboard/internal/imagecheck"
	"admin-dashboard/internal/pagination"
	"admin-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

type listQuery struct {
	pagination.Query
	Profile string `form:"profile"`
}

type ListResponse struct {
	Items []ImageResponse `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

func knownProfile(name string) bool {
	if name == imagecheck.VariantProfile {
		return true
	}
	_, ok := imagecheck.Lookup(name)
	return ok
}

func (h *Handler) ListUploads(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters"})
		return
	}
	if q.Profile != "" && !knownProfile(q.Profile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown image profile"})
		return
	}
	page := q.Query.Normalize()

	ctx := c.Request.Context()
	total, err := h.store.Count(ctx, q.Profile)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to count uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
		return
	}

	list, err := h.store.List(ctx, q.Profile, page.Limit, page.Offset())
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
		return
	}

	items := make([]ImageResponse, 0, len(list))
	for i := range list {
		items = append(items, newImageResponse(&list[i]))
	}

	c.JSON(http.StatusOK, ListResponse{
		Items: items,
		Meta:  pagination.NewMeta(page, total),
	})
}

func (h *Handler) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": imagecheck.Profiles()})
}

type windowQuery struct {
	Page   int  `form:"page" binding:"required,min=1"`
	Total  int  `form:"total" binding:"required,min=1"`
	Radius *int `form:"radius" binding:"omitempty,min=0,max=10"`
}

// PageWindow renders the page indicators for an arbitrary page/total pair.
func (h *Handler) PageWindow(c *gin.Context) {
	var q windowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page and total must be positive integers"})
		return
	}
	radius := pagination.DefaultRadius
	if q.Radius != nil {
		radius = *q.Radius
	}
	c.JSON(http.StatusOK, gin.H{"window": pagination.Window(q.Page, q.Total, radius)})
}
