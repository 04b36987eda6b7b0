package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/response"
	"github.com/stemsi/snbp-backend/internal/service"
	"github.com/stemsi/snbp-backend/internal/validator"
)

type ImportHandler struct {
	importService *service.ImportService
}

func NewImportHandler(importService *service.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// Import ingests validated student/grade rows. The upstream collaborator has
// already parsed whatever file format the school uses; this endpoint only
// accepts clean JSON rows and reports what it did, including the per-major
// recalculations it triggered.
func (h *ImportHandler) Import(c *gin.Context) {
	var req model.ImportRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	summary, err := h.importService.ImportRows(c.Request.Context(), req.Rows)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}
