package visibility

import (
	"fmt"
	"testing"

	"pharma-crm/internal/core"
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

func seedUser(t *testing.T, db *gorm.DB, role models.UserRole, email string) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, Role: role, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestResolveSysAdminSentinel(t *testing.T) {
	db := setupDB(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")

	vis, err := Resolve(db, core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !vis.All {
		t.Fatalf("expected no-filter sentinel for SYS_ADMIN")
	}
	if !vis.Allows(9999) {
		t.Fatalf("sentinel must allow every owner")
	}
}

func TestResolveAdminNoGrants(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")

	vis, err := Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if vis.All {
		t.Fatalf("ADMIN must never get the no-filter sentinel")
	}
	if len(vis.UserIDs) != 1 || vis.UserIDs[0] != admin.ID {
		t.Fatalf("expected exactly {%d}, got %v", admin.ID, vis.UserIDs)
	}
}

func TestResolveAdminGrantsOrderIndependent(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	a := seedUser(t, db, models.RoleAssociate, "a@x.com")
	b := seedUser(t, db, models.RoleAssociate, "b@x.com")

	// вставляем в обратном порядке
	for _, id := range []uint{b.ID, a.ID} {
		if err := db.Create(&models.AccessGrant{AdminID: admin.ID, UserID: id}).Error; err != nil {
			t.Fatalf("grant: %v", err)
		}
	}

	vis, err := Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := map[uint]bool{admin.ID: true, a.ID: true, b.ID: true}
	if len(vis.UserIDs) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), vis.UserIDs)
	}
	for _, id := range vis.UserIDs {
		if !want[id] {
			t.Fatalf("unexpected id %d in %v", id, vis.UserIDs)
		}
	}
	for i := 1; i < len(vis.UserIDs); i++ {
		if vis.UserIDs[i-1] >= vis.UserIDs[i] {
			t.Fatalf("ids not sorted: %v", vis.UserIDs)
		}
	}
}

func TestResolveAssociateSelfOnly(t *testing.T) {
	db := setupDB(t)
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")
	other := seedUser(t, db, models.RoleAssociate, "other@x.com")

	vis, err := Resolve(db, core.Caller{UserID: assoc.ID, Role: models.RoleAssociate})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if vis.All || len(vis.UserIDs) != 1 || vis.UserIDs[0] != assoc.ID {
		t.Fatalf("expected {%d}, got all=%v ids=%v", assoc.ID, vis.All, vis.UserIDs)
	}
	if vis.Allows(other.ID) {
		t.Fatalf("associate must not see other users")
	}
}

// Регрессия на эскалацию: неизвестная роль никогда не даёт сентинел.
func TestResolveUnknownRoleFailsClosed(t *testing.T) {
	db := setupDB(t)
	u := seedUser(t, db, models.RoleAssociate, "weird@x.com")

	for _, role := range []models.UserRole{"", "SUPERUSER", "sys_admin", "root"} {
		vis, err := Resolve(db, core.Caller{UserID: u.ID, Role: role})
		if err != nil {
			t.Fatalf("resolve role %q: %v", role, err)
		}
		if vis.All {
			t.Fatalf("role %q must not yield the no-filter sentinel", role)
		}
		if len(vis.UserIDs) != 1 || vis.UserIDs[0] != u.ID {
			t.Fatalf("role %q: expected {%d}, got %v", role, u.ID, vis.UserIDs)
		}
	}
}

func TestResolveMissingCaller(t *testing.T) {
	db := setupDB(t)

	if _, err := Resolve(db, core.Caller{UserID: 0, Role: models.RoleSysAdmin}); err != core.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveSeesGrantChanges(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	grant := models.AccessGrant{AdminID: admin.ID, UserID: assoc.ID}
	if err := db.Create(&grant).Error; err != nil {
		t.Fatalf("grant: %v", err)
	}

	vis, err := Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !vis.Allows(assoc.ID) {
		t.Fatalf("expected grant to be visible")
	}

	if err := db.Delete(&grant).Error; err != nil {
		t.Fatalf("revoke: %v", err)
	}

	// видимость пересчитывается на каждый запрос
	vis, err = Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve after revoke: %v", err)
	}
	if vis.Allows(assoc.ID) {
		t.Fatalf("revoked grant still visible")
	}
}
