package api

import (
	"fmt"
	"net/http"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	scheduler     service.DailyScheduler
	recordService service.RecordService
}

func NewAdminHandler(scheduler service.DailyScheduler, recordService service.RecordService) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, recordService: recordService}
}

type PendingRecordsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

type ReviewRecordRequest struct {
	Status     domain.ApprovalStatus `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	FraudRisk  *float64              `json:"fraudRisk" binding:"omitempty,min=0,max=100"`
	ReviewNote string                `json:"reviewNote" binding:"max=1000"`
}

type SchedulerRunResponse struct {
	Daily         service.DailyReport `json:"daily"`
	ExpiredClosed int                 `json:"expiredClosed"`
}

// RunScheduler godoc
// @Summary Run the daily training update now
// @Description Same work as the nightly job; safe to repeat.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SchedulerRunResponse
// @Failure 403 {object} gin.H "Not an admin"
// @Router /admin/scheduler/run [post]
func (h *AdminHandler) RunScheduler(c *gin.Context) {
	ctx := c.Request.Context()
	closed, err := h.scheduler.CompleteExpiredPlans(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.scheduler.RunDaily(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SchedulerRunResponse{Daily: report, ExpiredClosed: closed})
}

// ListPendingRecords godoc
// @Summary Records waiting for manual review
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "1-200, default 50"
// @Success 200 {array} RecordResponse
// @Failure 403 {object} gin.H "Not an admin"
// @Router /admin/records/pending [get]
func (h *AdminHandler) ListPendingRecords(c *gin.Context) {
	var q PendingRecordsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	records, err := h.recordService.ListPendingRecords(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRecordsToResponse(records))
}

// ReviewRecord godoc
// @Summary Approve or reject a record by hand
// @Description An approved record run today is attached to the runner's training day.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param recordId path string true "Record ID"
// @Param review body ReviewRecordRequest true "Decision"
// @Success 200 {object} SubmissionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Record not found"
// @Router /admin/records/{recordId}/approval [put]
func (h *AdminHandler) ReviewRecord(c *gin.Context) {
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req ReviewRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	res, err := h.recordService.ReviewRecord(c.Request.Context(), recordID, service.ReviewInput{
		Status:     req.Status,
		FraudRisk:  req.FraudRisk,
		ReviewNote: req.ReviewNote,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSubmissionToResponse(res))
}
