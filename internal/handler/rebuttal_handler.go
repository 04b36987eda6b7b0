package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/snbp-backend/internal/model"
	"github.com/stemsi/snbp-backend/internal/response"
	"github.com/stemsi/snbp-backend/internal/service"
	"github.com/stemsi/snbp-backend/internal/validator"
)

type RebuttalHandler struct {
	rebuttalService *service.RebuttalService
}

func NewRebuttalHandler(rebuttalService *service.RebuttalService) *RebuttalHandler {
	return &RebuttalHandler{rebuttalService: rebuttalService}
}

// Submit is the student-facing intake: it creates a PENDING rebuttal with a
// stable ID and returns it.
func (h *RebuttalHandler) Submit(c *gin.Context) {
	var req model.SubmitRebuttalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reb, err := h.rebuttalService.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"rebuttal": reb})
}

func (h *RebuttalHandler) Get(c *gin.Context) {
	reb, err := h.rebuttalService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rebuttal": reb})
}

func (h *RebuttalHandler) ListByStudent(c *gin.Context) {
	studentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rebuttals, err := h.rebuttalService.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rebuttals": rebuttals})
}

// ListPending feeds the admin review queue, oldest first.
func (h *RebuttalHandler) ListPending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	rebuttals, total, err := h.rebuttalService.ListByStatus(
		c.Request.Context(), model.RebuttalPending, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"rebuttals": rebuttals}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// Approve resolves a rebuttal in the student's favor. A success response
// confirms the grade was rewritten and a recalculation was triggered — not
// that the recalculation has completed.
func (h *RebuttalHandler) Approve(c *gin.Context) {
	h.resolve(c, h.rebuttalService.Approve)
}

func (h *RebuttalHandler) Reject(c *gin.Context) {
	h.resolve(c, h.rebuttalService.Reject)
}

func (h *RebuttalHandler) resolve(
	c *gin.Context,
	fn func(ctx context.Context, id string, req model.ResolveRebuttalRequest) (*model.Rebuttal, error),
) {
	var req model.ResolveRebuttalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	reb, err := fn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransition):
			response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
		case errors.Is(err, service.ErrRebuttalGradeMissing):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrGradeMissing)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rebuttal": reb})
}
