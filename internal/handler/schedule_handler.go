package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/limaJavier/roomtabling/internal/apperrors"
	"github.com/limaJavier/roomtabling/internal/dto"
	"github.com/limaJavier/roomtabling/internal/response"
	"github.com/limaJavier/roomtabling/internal/service"
	"github.com/limaJavier/roomtabling/pkg/model"
)

const maxBodyBytes = 4 << 20

type scheduleSolver interface {
	Solve(ctx context.Context, body []byte, query dto.SolveQuery) (model.Result, error)
	Verify(ctx context.Context, request dto.VerifyRequest) (dto.VerifyResponse, error)
	Options() dto.OptionsResponse
}

// ScheduleHandler exposes the solve endpoints.
type ScheduleHandler struct {
	service scheduleSolver
}

func NewScheduleHandler(svc *service.SolveService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Register mounts the handler under group
func (h *ScheduleHandler) Register(group *gin.RouterGroup) {
	group.POST("/schedules/solve", h.Solve)
	group.POST("/schedules/verify", h.Verify)
	group.GET("/schedules/options", h.Options)
}

// Solve answers 200 for solved and infeasible models alike, the status travels inside the result
func (h *ScheduleHandler) Solve(c *gin.Context) {
	var query dto.SolveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, http.StatusBadRequest, "cannot read body"))
		return
	}

	result, err := h.service.Solve(c.Request.Context(), body, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]any{"runId": result.RunId})
}

func (h *ScheduleHandler) Verify(c *gin.Context) {
	var request dto.VerifyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		response.Error(c, apperrors.Wrap(err, apperrors.ErrValidation.Code, http.StatusBadRequest, "invalid verify payload"))
		return
	}

	verification, err := h.service.Verify(c.Request.Context(), request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verification)
}

func (h *ScheduleHandler) Options(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Options())
}
