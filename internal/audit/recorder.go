package audit

import (
	"log"

	"pharma-crm/internal/models"
	"pharma-crm/internal/obs"

	"gorm.io/gorm"
)

// Действия журнала безопасности.
const (
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionLogin          = "login"
	ActionAuthFailed     = "auth_failed"
	ActionPasswordReset  = "password_reset"
	ActionPasswordChange = "password_change"
	ActionGrantCreated   = "grant_created"
	ActionGrantRevoked   = "grant_revoked"
)

// Типы сущностей в журнале.
const (
	EntityUser        = "user"
	EntityCredential  = "credential"
	EntityAccessGrant = "access_grant"
	EntityProspect    = "prospect"
	EntityActivity    = "activity"
	EntityTask        = "task"
)

// Meta — контекст запроса, попадающий в каждую запись журнала.
type Meta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

type Event struct {
	ActorUserID *uint
	Action      string
	EntityType  string
	EntityID    *uint
	Details     string
	Meta        Meta
}

type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends an event to the audit log. Best effort: a write failure
// is logged and counted but never propagated to the primary operation.
func (r *Recorder) Record(e Event) {
	if r == nil || r.db == nil {
		return
	}

	row := models.AuditEvent{
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Details:     e.Details,
		IPAddress:   e.Meta.IPAddress,
		UserAgent:   e.Meta.UserAgent,
		RequestID:   e.Meta.RequestID,
	}
	if err := r.db.Create(&row).Error; err != nil {
		obs.AuditWriteFailures.Inc()
		log.Printf("audit: failed to record %q: %v", e.Action, err)
	}
}
