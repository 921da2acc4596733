package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/core"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/models"
	"pharma-crm/internal/query"
	"pharma-crm/internal/visibility"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// допускаем и короткую форму YYYY-MM-DD
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "date", Message: "must be RFC3339 or YYYY-MM-DD"}
	}
	return t, nil
}

func (h *Handler) ListActivities(c *gin.Context) {
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

	from, err := parseDate(c.Query("from"))
	if err != nil {
		fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}

	var prospectID uint
	if raw := c.Query("prospectId"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, &core.ValidationError{Field: "prospectId", Message: "must be an id"})
			return
		}
		prospectID = uint(n)
	}

	f := query.ActivityFilter{
		Type:       models.ActivityType(c.Query("type")),
		ProspectID: prospectID,
		From:       from,
		To:         to,
	}

	items, info, err := query.Activities(h.db, vis, f, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, info))
}

type activityRequest struct {
	UserID     uint   `json:"userId"`
	ProspectID *uint  `json:"prospectId"`
	Type       string `json:"type" binding:"required"`
	Subject    string `json:"subject"`
	Notes      string `json:"notes"`
	OccurredAt string `json:"occurredAt"`
}

func (h *Handler) CreateActivity(c *gin.Context) {
	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "type", Message: "is required"})
		return
	}

	kind := models.ActivityType(req.Type)
	if !kind.Valid() {
		fail(c, &core.ValidationError{Field: "type", Message: "is not a known activity type"})
		return
	}

	owner, err := h.resolveOwner(c, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	occurredAt := time.Now()
	if req.OccurredAt != "" {
		occurredAt, err = parseDate(req.OccurredAt)
		if err != nil {
			fail(c, err)
			return
		}
	}

	// активность можно привязать только к видимому проспекту
	if req.ProspectID != nil {
		var prospect models.Prospect
		if err := h.db.First(&prospect, *req.ProspectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, core.ErrNotFound)
				return
			}
			fail(c, err)
			return
		}
		vis, err := visibility.Resolve(h.db, caller(c))
		if err != nil {
			fail(c, err)
			return
		}
		if !vis.Allows(prospect.UserID) {
			fail(c, core.ErrNotFound)
			return
		}
	}

	activity := models.Activity{
		UserID:     owner,
		ProspectID: req.ProspectID,
		Type:       kind,
		Subject:    req.Subject,
		Notes:      req.Notes,
		OccurredAt: occurredAt,
	}
	if err := h.db.Create(&activity).Error; err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	h.rec.Record(audit.Event{
		ActorUserID: &cl.UserID,
		Action:      audit.ActionCreate,
		EntityType:  audit.EntityActivity,
		EntityID:    &activity.ID,
		Details:     "logged " + req.Type + " activity",
		Meta:        middleware.MetaFrom(c),
	})
	c.JSON(http.StatusCreated, activity)
}

func (h *Handler) GetActivity(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var activity models.Activity
	if err := h.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, core.ErrNotFound)
			return
		}
		fail(c, err)
		return
	}

	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		fail(c, err)
		return
	}
	if !vis.Allows(activity.UserID) {
		fail(c, core.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, activity)
}
