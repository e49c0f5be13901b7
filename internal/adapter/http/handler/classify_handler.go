package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spamguardian/spam-guardian/internal/usecase"
)

// ClassifyHandler handles classification HTTP requests
type ClassifyHandler struct {
	classifyUC usecase.ClassifyUsecase
}

// NewClassifyHandler creates a new classify handler
func NewClassifyHandler(classifyUC usecase.ClassifyUsecase) *ClassifyHandler {
	return &ClassifyHandler{classifyUC: classifyUC}
}

// Classify handles POST /api/v1/classify
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var input usecase.ClassifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}
	input.RequestID = requestID(c)

	output, err := h.classifyUC.Classify(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// ClassifyBatch handles POST /api/v1/classify/batch
func (h *ClassifyHandler) ClassifyBatch(c *gin.Context) {
	var input usecase.ClassifyBatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}
	input.RequestID = requestID(c)

	output, err := h.classifyUC.ClassifyBatch(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// Normalize handles POST /api/v1/normalize
func (h *ClassifyHandler) Normalize(c *gin.Context) {
	var input usecase.NormalizeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.classifyUC.Normalize(c.Request.Context(), &input)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// ListVerdicts handles GET /api/v1/verdicts
func (h *ClassifyHandler) ListVerdicts(c *gin.Context) {
	filter, err := ParseVerdictFilter(c)
	if err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}
	pagination := ParsePagination(c)

	output, err := h.classifyUC.ListVerdicts(c.Request.Context(), filter, pagination.Limit, pagination.Offset)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// GetVerdict handles GET /api/v1/verdicts/:id
func (h *ClassifyHandler) GetVerdict(c *gin.Context) {
	id, err := ExtractUUIDParam(c, "id")
	if err != nil {
		HandleInvalidUUID(c, "verdict id")
		return
	}

	output, err := h.classifyUC.GetVerdict(c.Request.Context(), id)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// Stats handles GET /api/v1/verdicts/stats
func (h *ClassifyHandler) Stats(c *gin.Context) {
	filter, err := ParseVerdictFilter(c)
	if err != nil {
		HandleInvalidRequest(c, err.Error())
		return
	}

	output, err := h.classifyUC.Stats(c.Request.Context(), filter)
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}

// ModelInfo handles GET /api/v1/model
func (h *ClassifyHandler) ModelInfo(c *gin.Context) {
	output, err := h.classifyUC.ModelInfo(c.Request.Context())
	if err != nil {
		HandleUsecaseError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, output)
}
