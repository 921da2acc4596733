package server

import (
	"net/http"

	"pharma-crm/internal/config"
	"pharma-crm/internal/handlers"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/models"
	"pharma-crm/internal/obs"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("pharmacrm_session", store))

	r.Use(middleware.RequestID())
	r.Use(middleware.InjectCaller(db, []byte(cfg.JWTSecret)))

	h := handlers.New(db, cfg)

	// AUTH
	r.POST("/api/login", h.Login)

	auth := r.Group("/api")
	auth.Use(middleware.RequireAuth())

	auth.POST("/logout", h.Logout)
	auth.GET("/me", h.Me)
	auth.POST("/me/password", h.ChangePassword)
	auth.GET("/dashboard", h.Dashboard)

	// ПРОСПЕКТЫ
	auth.GET("/prospects", h.ListProspects)
	auth.POST("/prospects", h.CreateProspect)
	auth.GET("/prospects/:id", h.GetProspect)
	auth.PUT("/prospects/:id", h.UpdateProspect)

	// АКТИВНОСТИ
	auth.GET("/activities", h.ListActivities)
	auth.POST("/activities", h.CreateActivity)
	auth.GET("/activities/:id", h.GetActivity)

	// ЗАДАЧИ
	auth.GET("/tasks", h.ListTasks)
	auth.POST("/tasks", h.CreateTask)
	auth.GET("/tasks/:id", h.GetTask)
	auth.PUT("/tasks/:id", h.UpdateTask)

	// АДМИНИСТРИРОВАНИЕ
	admin := auth.Group("/")
	admin.Use(middleware.RequireRole(models.RoleAdmin, models.RoleSysAdmin))

	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.POST("/users/:id/password", h.ResetPassword)
	admin.POST("/users/:id/grants", h.AddGrant)
	admin.DELETE("/users/:id/grants/:userId", h.RevokeGrant)

	// АУДИТ
	admin.GET("/audit", h.ListAudit)

	// правка аккаунтов (роль, активность) — только сисадмин
	sys := auth.Group("/")
	sys.Use(middleware.RequireRole(models.RoleSysAdmin))
	sys.PUT("/users/:id", h.UpdateUser)

	// HEALTHCHECK + МЕТРИКИ
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(obs.Handler()))

	return r
}
