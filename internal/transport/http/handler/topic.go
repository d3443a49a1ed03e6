package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docbrain/internal/app"
	"docbrain/internal/transport/http/response"
)

type TopicHandler struct {
	topics *app.TopicService
	merge  *app.MergeService
}

func NewTopicHandler(topics *app.TopicService, merge *app.MergeService) *TopicHandler {
	return &TopicHandler{topics: topics, merge: merge}
}

func (h *TopicHandler) List(c *gin.Context) {
	projectID := parseUintQuery(c, "project_id")
	topics, err := h.topics.List(projectID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid project id")
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list topics failed")
		}
		return
	}
	response.OK(c, topics)
}

type MergeRequest struct {
	ProjectID uint `json:"project_id" binding:"required"`
}

// Merge recomputes the merged view of a topic. Concurrent runs for the same
// topic are rejected, not queued.
func (h *TopicHandler) Merge(c *gin.Context) {
	topicID, err := parseUintParam(c, "id")
	if err != nil || topicID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid topic id")
		return
	}
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.merge.MergeTopicChunks(c.Request.Context(), topicID, req.ProjectID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrTopicNotFound):
			response.Error(c, http.StatusNotFound, response.CodeTopicNotFound, err.Error())
		case errors.Is(err, app.ErrNoChunks):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrMergeInProgress):
			response.Error(c, http.StatusConflict, response.CodeMergeInProgress, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "merge failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *TopicHandler) MergedChunks(c *gin.Context) {
	topicID, err := parseUintParam(c, "id")
	if err != nil || topicID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid topic id")
		return
	}
	projectID := parseUintQuery(c, "project_id")
	if projectID == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid project id")
		return
	}

	merged, err := h.topics.MergedChunks(topicID, projectID)
	if err != nil {
		if errors.Is(err, app.ErrTopicNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeTopicNotFound, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list merged chunks failed")
		}
		return
	}
	response.OK(c, merged)
}
