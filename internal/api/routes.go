package api

import (
	"net/http"

	"marathononline/training-api/internal/domain"
	"marathononline/training-api/internal/service"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer talks to.
type Services struct {
	Auth      service.AuthService
	Plans     service.TrainingPlanService
	Days      service.TrainingDayService
	Feedback  service.FeedbackService
	Records   service.RecordService
	Scheduler service.DailyScheduler
}

// NewRouter builds the gin engine with logging and recovery installed.
func NewRouter(jwtSecret string, svcs Services) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(), gin.Recovery())
	SetupRoutes(router, jwtSecret, svcs)
	return router
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svcs Services) {
	authHandler := NewAuthHandler(svcs.Auth)
	planHandler := NewPlanHandler(svcs.Plans)
	dayHandler := NewDayHandler(svcs.Days, svcs.Feedback)
	recordHandler := NewRecordHandler(svcs.Records)
	adminHandler := NewAdminHandler(svcs.Scheduler, svcs.Records)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, ok := currentUser(c)
			if !ok {
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "email": c.GetString(ContextUserEmailKey), "role": role})
		})

		plans := protected.Group("/training-plans")
		{
			plans.POST("", planHandler.CreatePlan)
			plans.GET("", planHandler.ListPlans)
			plans.GET("/current", planHandler.GetCurrentPlan)
			plans.GET("/current/progress", planHandler.GetProgress)
			plans.GET("/:planId", planHandler.GetPlan)
			plans.PATCH("/:planId/status", planHandler.UpdateStatus)
			plans.POST("/:planId/export", planHandler.ExportPlan)
		}

		days := protected.Group("/training-days")
		{
			days.GET("/current", dayHandler.GetCurrentDay)
			days.POST("/current/records", dayHandler.AttachRecord)
			days.POST("/current/reset", dayHandler.ResetCurrentDay)
			days.GET("/:dayId", dayHandler.GetDay)
			days.PUT("/:dayId/feedback", dayHandler.SaveFeedback)
			days.GET("/:dayId/feedback", dayHandler.GetFeedback)
		}

		records := protected.Group("/records")
		{
			records.POST("", recordHandler.SubmitRecords)
			records.GET("", recordHandler.ListRecords)
		}

		admin := protected.Group("/admin")
		admin.Use(RoleMiddleware(domain.RoleAdmin))
		{
			admin.POST("/scheduler/run", adminHandler.RunScheduler)
			admin.GET("/records/pending", adminHandler.ListPendingRecords)
			admin.PUT("/records/:recordId/approval", adminHandler.ReviewRecord)
		}
	}
}
