package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docbrain/internal/app"
	"docbrain/internal/transport/http/response"
)

type SettingHandler struct {
	settings *app.SettingService
}

func NewSettingHandler(settings *app.SettingService) *SettingHandler {
	return &SettingHandler{settings: settings}
}

func (h *SettingHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get settings failed")
		return
	}
	response.OK(c, settings)
}

type UpdateLLMSettingRequest struct {
	Provider   string            `json:"provider" binding:"required"`
	BaseURL    string            `json:"base_url"`
	APIKey     string            `json:"api_key"`
	Model      string            `json:"model"`
	TaskModels map[string]string `json:"task_models"`
}

func (h *SettingHandler) UpdateLLM(c *gin.Context) {
	var req UpdateLLMSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	setting, err := h.settings.UpdateLLM(c.Request.Context(), app.UpdateLLMSettingInput{
		Provider:   req.Provider,
		BaseURL:    req.BaseURL,
		APIKey:     req.APIKey,
		Model:      req.Model,
		TaskModels: req.TaskModels,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save llm setting failed")
		}
		return
	}
	response.OK(c, setting)
}

type UpdateEmbeddingSettingRequest struct {
	Provider   string `json:"provider" binding:"required"`
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

func (h *SettingHandler) UpdateEmbedding(c *gin.Context) {
	var req UpdateEmbeddingSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	setting, err := h.settings.UpdateEmbedding(c.Request.Context(), app.UpdateEmbeddingSettingInput{
		Provider:   req.Provider,
		BaseURL:    req.BaseURL,
		APIKey:     req.APIKey,
		Model:      req.Model,
		Dimensions: req.Dimensions,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "save embedding setting failed")
		}
		return
	}
	response.OK(c, setting)
}
