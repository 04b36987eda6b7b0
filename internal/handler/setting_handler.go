package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/response"
	"github.com/stemsi/snbp-backend/internal/service"
	"github.com/stemsi/snbp-backend/internal/validator"
)

type SettingHandler struct {
	settingService *service.SettingService
}

func NewSettingHandler(settingService *service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func (h *SettingHandler) GetWeights(c *gin.Context) {
	cfg, err := h.settingService.SemesterWeights(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"weights": cfg})
}

// UpdateWeights replaces the semester weight vector and bumps its version.
// It deliberately does not recalculate: the admin pairs a weight change with
// an explicit recalc trigger.
func (h *SettingHandler) UpdateWeights(c *gin.Context) {
	var req model.UpdateWeightsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := h.settingService.UpdateWeights(c.Request.Context(), req.Weights)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"weights": cfg})
}
