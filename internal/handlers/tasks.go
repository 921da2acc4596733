package handlers

import (
	"errors"
	"net/http"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/core"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/models"
	"pharma-crm/internal/query"
	"pharma-crm/internal/visibility"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (h *Handler) ListTasks(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		fail(c, err)
		return
	}

	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	f := query.TaskFilter{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.TaskPriority(c.Query("priority")),
	}

	items, info, err := query.Tasks(h.db, vis, f, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, info))
}

type taskRequest struct {
	UserID      uint   `json:"userId"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "title", Message: "is required"})
		return
	}

	owner, err := h.resolveOwner(c, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	task := models.Task{
		UserID:      owner,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskOpen,
		Priority:    models.PriorityMedium,
	}
	if req.Status != "" {
		status := models.TaskStatus(req.Status)
		if !status.Valid() {
			fail(c, &core.ValidationError{Field: "status", Message: "is not a known status"})
			return
		}
		task.Status = status
	}
	if req.Priority != "" {
		priority := models.TaskPriority(req.Priority)
		if !priority.Valid() {
			fail(c, &core.ValidationError{Field: "priority", Message: "is not a known priority"})
			return
		}
		task.Priority = priority
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			fail(c, err)
			return
		}
		task.DueDate = &due
	}

	if err := h.db.Create(&task).Error; err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	h.rec.Record(audit.Event{
		ActorUserID: &cl.UserID,
		Action:      audit.ActionCreate,
		EntityType:  audit.EntityTask,
		EntityID:    &task.ID,
		Details:     "created task " + task.Title,
		Meta:        middleware.MetaFrom(c),
	})
	c.JSON(http.StatusCreated, task)
}

func (h *Handler) loadVisibleTask(c *gin.Context) (*models.Task, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}

	var task models.Task
	if err := h.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}

	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		return nil, err
	}
	if !vis.Allows(task.UserID) {
		return nil, core.ErrNotFound
	}
	return &task, nil
}

func (h *Handler) GetTask(c *gin.Context) {
	task, err := h.loadVisibleTask(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask меняет содержимое и статус, владельца не трогает.
func (h *Handler) UpdateTask(c *gin.Context) {
	task, err := h.loadVisibleTask(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "title", Message: "is required"})
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	if req.Status != "" {
		status := models.TaskStatus(req.Status)
		if !status.Valid() {
			fail(c, &core.ValidationError{Field: "status", Message: "is not a known status"})
			return
		}
		task.Status = status
	}
	if req.Priority != "" {
		priority := models.TaskPriority(req.Priority)
		if !priority.Valid() {
			fail(c, &core.ValidationError{Field: "priority", Message: "is not a known priority"})
			return
		}
		task.Priority = priority
	}
	if req.DueDate != "" {
		due, err := parseDate(req.DueDate)
		if err != nil {
			fail(c, err)
			return
		}
		task.DueDate = &due
	}

	if err := h.db.Save(task).Error; err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	h.rec.Record(audit.Event{
		ActorUserID: &cl.UserID,
		Action:      audit.ActionUpdate,
		EntityType:  audit.EntityTask,
		EntityID:    &task.ID,
		Details:     "updated task " + task.Title,
		Meta:        middleware.MetaFrom(c),
	})
	c.JSON(http.StatusOK, task)
}
