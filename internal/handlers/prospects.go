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

func (h *Handler) ListProspects(c *gin.Context) {
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

	f := query.ProspectFilter{
		Status:    models.ProspectStatus(c.Query("status")),
		Territory: c.Query("territory"),
	}

	items, info, err := query.Prospects(h.db, vis, f, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, info))
}

type prospectRequest struct {
	UserID    uint   `json:"userId"` // необязательно: по умолчанию сам вызывающий
	Name      string `json:"name" binding:"required"`
	Company   string `json:"company"`
	Specialty string `json:"specialty"`
	Territory string `json:"territory"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// resolveOwner picks the owning user for a new record: the caller, or an
// explicitly named user inside the caller's visibility set.
func (h *Handler) resolveOwner(c *gin.Context, requested uint) (uint, error) {
	cl := caller(c)
	if requested == 0 || requested == cl.UserID {
		return cl.UserID, nil
	}
	vis, err := visibility.Resolve(h.db, cl)
	if err != nil {
		return 0, err
	}
	if !vis.Allows(requested) {
		return 0, core.ErrForbidden
	}
	return requested, nil
}

func (h *Handler) CreateProspect(c *gin.Context) {
	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "name", Message: "is required"})
		return
	}

	owner, err := h.resolveOwner(c, req.UserID)
	if err != nil {
		fail(c, err)
		return
	}

	status := models.ProspectStatus(req.Status)
	if status == "" {
		status = models.ProspectNew
	}
	if !status.Valid() {
		fail(c, &core.ValidationError{Field: "status", Message: "is not a known status"})
		return
	}

	prospect := models.Prospect{
		UserID:    owner,
		Name:      req.Name,
		Company:   req.Company,
		Specialty: req.Specialty,
		Territory: req.Territory,
		Status:    status,
		Notes:     req.Notes,
	}
	if err := h.db.Create(&prospect).Error; err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	h.rec.Record(audit.Event{
		ActorUserID: &cl.UserID,
		Action:      audit.ActionCreate,
		EntityType:  audit.EntityProspect,
		EntityID:    &prospect.ID,
		Details:     "created prospect " + prospect.Name,
		Meta:        middleware.MetaFrom(c),
	})
	c.JSON(http.StatusCreated, prospect)
}

// loadVisibleProspect fetches a prospect the caller may see. Records
// outside the visibility set come back as NotFound, not Forbidden, so
// their existence does not leak.
func (h *Handler) loadVisibleProspect(c *gin.Context) (*models.Prospect, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}

	var prospect models.Prospect
	if err := h.db.First(&prospect, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}

	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		return nil, err
	}
	if !vis.Allows(prospect.UserID) {
		return nil, core.ErrNotFound
	}
	return &prospect, nil
}

func (h *Handler) GetProspect(c *gin.Context) {
	prospect, err := h.loadVisibleProspect(c)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prospect)
}

// UpdateProspect меняет только содержимое и статус — владелец записи
// неизменен после создания.
func (h *Handler) UpdateProspect(c *gin.Context) {
	prospect, err := h.loadVisibleProspect(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "name", Message: "is required"})
		return
	}

	prospect.Name = req.Name
	prospect.Company = req.Company
	prospect.Specialty = req.Specialty
	prospect.Territory = req.Territory
	if req.Status != "" {
		status := models.ProspectStatus(req.Status)
		if !status.Valid() {
			fail(c, &core.ValidationError{Field: "status", Message: "is not a known status"})
			return
		}
		prospect.Status = status
	}
	prospect.Notes = req.Notes

	if err := h.db.Save(prospect).Error; err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	h.rec.Record(audit.Event{
		ActorUserID: &cl.UserID,
		Action:      audit.ActionUpdate,
		EntityType:  audit.EntityProspect,
		EntityID:    &prospect.ID,
		Details:     "updated prospect " + prospect.Name,
		Meta:        middleware.MetaFrom(c),
	})
	c.JSON(http.StatusOK, prospect)
}
