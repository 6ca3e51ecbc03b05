package api

import (
	authUsecase "github.com/MuazAsif-Dev/tasker/internal/auth/usecase"
	taskDelivery "github.com/MuazAsif-Dev/tasker/internal/task/delivery"
	taskUsecasePkg "github.com/MuazAsif-Dev/tasker/internal/task/usecase"
	"github.com/MuazAsif-Dev/tasker/pkg/config"
	"github.com/MuazAsif-Dev/tasker/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase authUsecase.AuthUsecase
	taskUsecase taskUsecasePkg.TaskUsecase
	sseManager  *sse.Manager
	config      *config.Config
	taskHandler *taskDelivery.TaskHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, taskUc taskUsecasePkg.TaskUsecase, sseManager *sse.Manager, cfg *config.Config) *Handler {
	return &Handler{
		authUsecase: authUc,
		taskUsecase: taskUc,
		sseManager:  sseManager,
		config:      cfg,
		taskHandler: taskDelivery.NewTaskHandler(taskUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.sseManager, h.taskHandler)

	return r.Run(addr)
}
