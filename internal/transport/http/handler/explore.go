package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docbrain/internal/app"
	"docbrain/internal/transport/http/response"
)

type ExploreHandler struct {
	explore *app.ExploreService
}

func NewExploreHandler(explore *app.ExploreService) *ExploreHandler {
	return &ExploreHandler{explore: explore}
}

type ExploreRequest struct {
	ProjectID uint   `json:"project_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"top_k"`
}

func (h *ExploreHandler) Search(c *gin.Context) {
	var req ExploreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.explore.Search(c.Request.Context(), req.ProjectID, req.Query, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrVectorSearchUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeSearchUnavailable, "semantic search is unavailable, check the embedding provider")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, result)
}
