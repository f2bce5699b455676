package api

import (
	"fmt"
	"net/http"
	"time"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/repository"
	"marathononline/training-api/internal/service"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	planService service.TrainingPlanService
}

func NewPlanHandler(planService service.TrainingPlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlanRequest leaves maxDistance/averagePace optional; missing values are
// taken from the runner's approved records.
type CreatePlanRequest struct {
	Level       domain.Level `json:"level" binding:"required"`
	Goal        domain.Goal  `json:"goal" binding:"required"`
	MaxDistance *float64     `json:"maxDistance"`
	AveragePace *float64     `json:"averagePace"`
	Weeks       int          `json:"weeks" binding:"required"`
	DaysPerWeek int          `json:"daysPerWeek" binding:"required"`
}

type UpdatePlanStatusRequest struct {
	Status domain.PlanStatus `json:"status" binding:"required"`
}

type ListPlansQuery struct {
	Status    domain.PlanStatus `form:"status"`
	StartFrom *time.Time        `form:"startFrom" time_format:"2006-01-02" time_utc:"1"`
	StartTo   *time.Time        `form:"startTo" time_format:"2006-01-02" time_utc:"1"`
	Page      int               `form:"page"`
	Size      int               `form:"size"`
}

// CreatePlan godoc
// @Summary Generate a new training plan
// @Description Archives the runner's active plan and generates a new one.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body CreatePlanRequest true "Runner profile"
// @Success 201 {object} TrainingPlanResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /training-plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), userID, service.CreatePlanInput{
		Level:       req.Level,
		Goal:        req.Goal,
		MaxDistance: req.MaxDistance,
		AveragePace: req.AveragePace,
		Weeks:       req.Weeks,
		DaysPerWeek: req.DaysPerWeek,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapPlanWithDaysToResponse(plan))
}

// GetCurrentPlan godoc
// @Summary Get the runner's active plan with its days
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TrainingPlanResponse
// @Failure 404 {object} gin.H "No active plan"
// @Router /training-plans/current [get]
func (h *PlanHandler) GetCurrentPlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	plan, err := h.planService.GetCurrentPlan(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanWithDaysToResponse(plan))
}

// GetPlan godoc
// @Summary Get one of the runner's plans with its days
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} TrainingPlanResponse
// @Router /training-plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanWithDaysToResponse(plan))
}

// ListPlans godoc
// @Summary List the runner's plans
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param status query string false "ACTIVE, COMPLETED or ARCHIVED"
// @Param startFrom query string false "YYYY-MM-DD"
// @Param startTo query string false "YYYY-MM-DD"
// @Param page query int false "zero-based page"
// @Param size query int false "page size"
// @Success 200 {object} PlanPageResponse
// @Router /training-plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var q ListPlansQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	filter := repository.PlanFilter{
		Status:    q.Status,
		StartFrom: q.StartFrom,
		StartTo:   q.StartTo,
		Page:      q.Page,
		Size:      q.Size,
	}
	plans, total, err := h.planService.ListPlans(c.Request.Context(), userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	size := q.Size
	if size <= 0 {
		size = len(plans)
	}
	c.JSON(http.StatusOK, MapPlansToPage(plans, total, q.Page, size))
}

// UpdateStatus godoc
// @Summary Change a plan's status
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param status body UpdatePlanStatusRequest true "New status"
// @Success 200 {object} TrainingPlanResponse
// @Failure 409 {object} gin.H "Plan already ended"
// @Router /training-plans/{planId}/status [patch]
func (h *PlanHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	var req UpdatePlanStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	plan, err := h.planService.UpdateStatus(c.Request.Context(), userID, planID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapPlanToResponse(plan))
}

// GetProgress godoc
// @Summary Progress of the active plan
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProgressResponse
// @Router /training-plans/current/progress [get]
func (h *PlanHandler) GetProgress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	progress, err := h.planService.GetProgress(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapProgressToResponse(progress))
}

// ExportPlan godoc
// @Summary Export a plan snapshot to object storage
// @Description Uploads a JSON snapshot and returns a short-lived download URL.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 201 {object} ExportResponse
// @Failure 500 {object} gin.H "Storage not configured"
// @Router /training-plans/{planId}/export [post]
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	planID, ok := pathID(c, "planId")
	if !ok {
		return
	}
	exp, err := h.planService.ExportPlan(c.Request.Context(), userID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{ObjectKey: exp.ObjectKey, URL: exp.URL, ExpiresAt: exp.ExpiresAt})
}
