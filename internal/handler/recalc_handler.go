package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/response"
	"github.com/stemsi/snbp-backend/internal/service"
	"github.com/stemsi/snbp-backend/internal/validator"
)

type RecalcHandler struct {
	recalcService *service.RecalcService
}

func NewRecalcHandler(recalcService *service.RecalcService) *RecalcHandler {
	return &RecalcHandler{recalcService: recalcService}
}

// Trigger runs a recalculation synchronously for the requested scope and
// returns the per-major reports. Failures identify the major and the error
// class instead of a generic message.
func (h *RecalcHandler) Trigger(c *gin.Context) {
	var req model.RecalcRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reports, err := h.recalcService.Recalc(c.Request.Context(), req)
	if err != nil {
		var majorErr *service.MajorRecalcError
		if errors.As(err, &majorErr) {
			status, code := recalcErrCode(majorErr)
			c.JSON(status, gin.H{
				"error": gin.H{
					"code":       code,
					"message":    response.GetMessage(code),
					"major_id":   majorErr.MajorID,
					"major_code": majorErr.MajorCode,
				},
				"reports": reports,
			})
			return
		}
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}

func recalcErrCode(err *service.MajorRecalcError) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrQuotaNotConfigured):
		return http.StatusUnprocessableEntity, response.ErrQuotaNotConfigured
	case errors.Is(err, service.ErrRecalcInProgress):
		return http.StatusConflict, response.ErrRecalcInProgress
	case errors.Is(err, service.ErrRecalcSuperseded):
		return http.StatusConflict, response.ErrRecalcSuperseded
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
