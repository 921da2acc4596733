package query

import (
	"time"

	"pharma-crm/internal/core"
	"pharma-crm/internal/models"
	"pharma-crm/internal/visibility"

	"gorm.io/gorm"
)

type AuditFilter struct {
	ActorUserID uint
	Action      string
	EntityType  string
	EntityID    uint
	From        time.Time
	To          time.Time
}

// AuditEvents lists the security log for the caller. Visibility applies
// to the actor column. On top of it, events authored by a SYS_ADMIN are
// always hidden from non-SYS_ADMIN callers, whatever the filters say.
func AuditEvents(db *gorm.DB, caller core.Caller, vis visibility.Visibility, f AuditFilter, p Page) ([]models.AuditEvent, PageInfo, error) {
	if err := p.validate(); err != nil {
		return nil, PageInfo{}, err
	}

	q := db.Model(&models.AuditEvent{}).Scopes(vis.ScopeColumn("actor_user_id"))

	if caller.Role != models.RoleSysAdmin {
		sysAdmins := db.Model(&models.User{}).
			Select("id").
			Where("role = ?", models.RoleSysAdmin)
		q = q.Where("actor_user_id IS NULL OR actor_user_id NOT IN (?)", sysAdmins)
	}

	if f.ActorUserID != 0 {
		q = q.Where("actor_user_id = ?", f.ActorUserID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at <= ?", f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var items []models.AuditEvent
	err := q.Order("created_at DESC, id DESC").Scopes(p.scope).Find(&items).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items, pageInfo(total, p.Limit), nil
}
