package api

import (
	"fmt"
	"net/http"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"github.com/gin-gonic/gin"
)

const maxRecordsPerSubmission = 100

type RecordHandler struct {
	recordService service.RecordService
}

func NewRecordHandler(recordService service.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

type SubmitRecordsRequest struct {
	Records []domain.RawRecordSubmission `json:"records" binding:"required,min=1"`
}

type ListRecordsQuery struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// SubmitRecords godoc
// @Summary Submit activity records
// @Description Merges overlapping records, runs the fraud gate and attaches
// @Description approved records to today's training day.
// @Tags Records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param records body SubmitRecordsRequest true "Raw records"
// @Success 201 {array} SubmissionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /records [post]
func (h *RecordHandler) SubmitRecords(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req SubmitRecordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if len(req.Records) > maxRecordsPerSubmission {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("At most %d records per request", maxRecordsPerSubmission))
		return
	}

	results, err := h.recordService.SubmitRecords(c.Request.Context(), userID, req.Records)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]SubmissionResponse, len(results))
	for i := range results {
		resp[i] = MapSubmissionToResponse(&results[i])
	}
	c.JSON(http.StatusCreated, resp)
}

// ListRecords godoc
// @Summary The runner's records in a time window
// @Description Defaults to the last 30 days.
// @Tags Records
// @Produce json
// @Security BearerAuth
// @Param from query string false "RFC3339"
// @Param to query string false "RFC3339"
// @Success 200 {array} RecordResponse
// @Router /records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q ListRecordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	records, err := h.recordService.ListRecords(c.Request.Context(), userID, q.From, q.To)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRecordsToResponse(records))
}
