package api

import (
	"fmt"
	"net/http"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DayHandler serves training days and their feedback.
type DayHandler struct {
	dayService      service.TrainingDayService
	feedbackService service.FeedbackService
}

func NewDayHandler(dayService service.TrainingDayService, feedbackService service.FeedbackService) *DayHandler {
	return &DayHandler{dayService: dayService, feedbackService: feedbackService}
}

type AttachRecordRequest struct {
	RecordID string `json:"recordId" binding:"required"`
}

type FeedbackRequest struct {
	DifficultyRating domain.DifficultyRating `json:"difficultyRating" binding:"required"`
	FeelingRating    domain.FeelingRating    `json:"feelingRating" binding:"required"`
	Notes            string                  `json:"notes" binding:"max=1000"`
}

// GetCurrentDay godoc
// @Summary Today's training day
// @Tags Days
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TrainingDayResponse
// @Failure 404 {object} gin.H "No active plan or no day today"
// @Router /training-days/current [get]
func (h *DayHandler) GetCurrentDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	day, err := h.dayService.GetCurrentTrainingDay(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDayToResponse(day))
}

// GetDay godoc
// @Summary A training day by id
// @Tags Days
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Success 200 {object} TrainingDayResponse
// @Router /training-days/{dayId} [get]
func (h *DayHandler) GetDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dayID, ok := pathID(c, "dayId")
	if !ok {
		return
	}
	day, err := h.dayService.GetTrainingDay(c.Request.Context(), userID, dayID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDayToResponse(day))
}

// AttachRecord godoc
// @Summary Attach an approved record to today's training day
// @Tags Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param record body AttachRecordRequest true "Record to attach"
// @Success 200 {object} TrainingDayResponse
// @Failure 409 {object} gin.H "Rest interval exceeded, record not approved or day closed"
// @Router /training-days/current/records [post]
func (h *DayHandler) AttachRecord(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req AttachRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	recordID, err := primitive.ObjectIDFromHex(req.RecordID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid recordId format.")
		return
	}
	day, err := h.dayService.SaveRecordIntoTrainingDay(c.Request.Context(), userID, recordID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDayToResponse(day))
}

// ResetCurrentDay godoc
// @Summary Drop every record attached to today's training day
// @Tags Days
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TrainingDayResponse
// @Router /training-days/current/reset [post]
func (h *DayHandler) ResetCurrentDay(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	day, err := h.dayService.ResetTrainingDay(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDayToResponse(day))
}

// SaveFeedback godoc
// @Summary Create or replace the feedback of a training day
// @Tags Days
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Param feedback body FeedbackRequest true "Feedback"
// @Success 200 {object} FeedbackResponse
// @Failure 409 {object} gin.H "Day has not happened yet"
// @Router /training-days/{dayId}/feedback [put]
func (h *DayHandler) SaveFeedback(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dayID, ok := pathID(c, "dayId")
	if !ok {
		return
	}
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	fb, err := h.feedbackService.SaveFeedback(c.Request.Context(), userID, dayID, service.FeedbackInput{
		DifficultyRating: req.DifficultyRating,
		FeelingRating:    req.FeelingRating,
		Notes:            req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapFeedbackToResponse(fb))
}

// GetFeedback godoc
// @Summary Feedback of a training day
// @Tags Days
// @Produce json
// @Security BearerAuth
// @Param dayId path string true "Training day ID"
// @Success 200 {object} FeedbackResponse
// @Failure 404 {object} gin.H "No feedback yet"
// @Router /training-days/{dayId}/feedback [get]
func (h *DayHandler) GetFeedback(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	dayID, ok := pathID(c, "dayId")
	if !ok {
		return
	}
	fb, err := h.feedbackService.GetFeedback(c.Request.Context(), userID, dayID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapFeedbackToResponse(fb))
}
