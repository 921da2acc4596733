package audit_test

import (
	"fmt"
	"testing"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/database"
	"pharma-crm/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRecordAppends(t *testing.T) {
	db := setupDB(t)
	rec := audit.NewRecorder(db)

	actor := uint(7)
	entity := uint(42)
	rec.Record(audit.Event{
		ActorUserID: &actor,
		Action:      audit.ActionPasswordReset,
		EntityType:  audit.EntityCredential,
		EntityID:    &entity,
		Details:     "reset by test",
		Meta:        audit.Meta{IPAddress: "10.0.0.1", UserAgent: "test-agent", RequestID: "req-1"},
	})

	var rows []models.AuditEvent
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rows))
	}
	e := rows[0]
	if e.ActorUserID == nil || *e.ActorUserID != actor {
		t.Fatalf("actor not captured")
	}
	if e.Action != audit.ActionPasswordReset || e.EntityType != audit.EntityCredential {
		t.Fatalf("action/entity not captured: %+v", e)
	}
	if e.IPAddress != "10.0.0.1" || e.UserAgent != "test-agent" || e.RequestID != "req-1" {
		t.Fatalf("request meta not captured: %+v", e)
	}
}

// Сбой записи в журнал не должен ронять основную операцию.
func TestRecordFailureIsSwallowed(t *testing.T) {
	db := setupDB(t)
	rec := audit.NewRecorder(db)

	if err := db.Migrator().DropTable(&models.AuditEvent{}); err != nil {
		t.Fatalf("drop: %v", err)
	}

	// не должно паниковать и не должно возвращать ошибку — её просто нет в сигнатуре
	rec.Record(audit.Event{Action: audit.ActionLogin, EntityType: audit.EntityUser})
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *audit.Recorder
	rec.Record(audit.Event{Action: audit.ActionLogin, EntityType: audit.EntityUser})
}
