package users

import (
	"errors"
	"fmt"
	"testing"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/core"
	"pharma-crm/internal/credentials"
	"pharma-crm/internal/database"
	"pharma-crm/internal/models"
	"pharma-crm/internal/visibility"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setup(t *testing.T) (*Service, *credentials.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := credentials.NewStore(db)
	return NewService(db, store, audit.NewRecorder(db)), store, db
}

func seedUser(t *testing.T, db *gorm.DB, role models.UserRole, email string) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, Role: role, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestProvisionAdminWithGrants(t *testing.T) {
	svc, store, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	a := seedUser(t, db, models.RoleAssociate, "a@x.com")
	b := seedUser(t, db, models.RoleAssociate, "b@x.com")

	caller := core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}
	admin, err := svc.Provision(caller, ProvisionInput{
		Name:         "Region Admin",
		Email:        "Region.Admin@X.com",
		Role:         models.RoleAdmin,
		Password:     "Valid1!pass",
		GrantUserIDs: []uint{b.ID, a.ID, a.ID}, // дубль должен схлопнуться
	}, audit.Meta{})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if admin.Email != "region.admin@x.com" {
		t.Fatalf("email not normalized: %s", admin.Email)
	}

	if ok, _ := store.Verify(admin.ID, "Valid1!pass"); !ok {
		t.Fatalf("provisioned credential does not verify")
	}

	vis, err := visibility.Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !vis.Allows(a.ID) || !vis.Allows(b.ID) {
		t.Fatalf("grants not effective: %v", vis.UserIDs)
	}

	var grants int64
	if err := db.Model(&models.AccessGrant{}).Where("admin_id = ?", admin.ID).Count(&grants).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if grants != 2 {
		t.Fatalf("expected 2 grant rows, got %d", grants)
	}
}

// Всё или ничего: сбой на грантах не оставляет ни пользователя,
// ни учётных данных.
func TestProvisionAtomicity(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")

	caller := core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}
	_, err := svc.Provision(caller, ProvisionInput{
		Name:         "Broken Admin",
		Email:        "broken@x.com",
		Role:         models.RoleAdmin,
		Password:     "Valid1!pass",
		GrantUserIDs: []uint{777}, // не существует
	}, audit.Meta{})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}

	var userCount int64
	if err := db.Model(&models.User{}).Where("email = ?", "broken@x.com").Count(&userCount).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if userCount != 0 {
		t.Fatalf("user persisted despite failed provisioning")
	}
	var credCount int64
	if err := db.Model(&models.Credential{}).Count(&credCount).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if credCount != 0 {
		t.Fatalf("credential persisted despite failed provisioning")
	}
}

func TestProvisionDuplicateEmail(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	seedUser(t, db, models.RoleAssociate, "taken@x.com")

	caller := core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}
	_, err := svc.Provision(caller, ProvisionInput{
		Name:     "Dup",
		Email:    "taken@x.com",
		Role:     models.RoleAssociate,
		Password: "Valid1!pass",
	}, audit.Meta{})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestProvisionRoleAuthority(t *testing.T) {
	svc, _, db := setup(t)
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	adminCaller := core.Caller{UserID: admin.ID, Role: models.RoleAdmin}

	// админ не заводит админов
	_, err := svc.Provision(adminCaller, ProvisionInput{
		Name: "X", Email: "x@x.com", Role: models.RoleAdmin, Password: "Valid1!pass",
	}, audit.Meta{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("admin provisioning admin: expected Forbidden, got %v", err)
	}

	// ассоциат не заводит никого
	_, err = svc.Provision(core.Caller{UserID: assoc.ID, Role: models.RoleAssociate}, ProvisionInput{
		Name: "Y", Email: "y@x.com", Role: models.RoleAssociate, Password: "Valid1!pass",
	}, audit.Meta{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("associate provisioning: expected Forbidden, got %v", err)
	}

	// а ассоциата админ завести может
	got, err := svc.Provision(adminCaller, ProvisionInput{
		Name: "New Rep", Email: "rep@x.com", Role: models.RoleAssociate, Password: "Valid1!pass",
	}, audit.Meta{})
	if err != nil {
		t.Fatalf("admin provisioning associate: %v", err)
	}
	if got.Role != models.RoleAssociate {
		t.Fatalf("unexpected role %s", got.Role)
	}
}

func TestGrantDuplicate(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	caller := core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}
	if err := svc.Grant(caller, admin.ID, assoc.ID, audit.Meta{}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.Grant(caller, admin.ID, assoc.ID, audit.Meta{}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate grant: expected Conflict, got %v", err)
	}
}

func TestGrantAuthority(t *testing.T) {
	svc, _, db := setup(t)
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	rival := seedUser(t, db, models.RoleAdmin, "rival@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	// админ не распоряжается чужими делегированиями
	err := svc.Grant(core.Caller{UserID: admin.ID, Role: models.RoleAdmin}, rival.ID, assoc.ID, audit.Meta{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	// своими — может
	if err := svc.Grant(core.Caller{UserID: admin.ID, Role: models.RoleAdmin}, admin.ID, assoc.ID, audit.Meta{}); err != nil {
		t.Fatalf("self grant: %v", err)
	}

	// несуществующий получатель
	err = svc.Grant(core.Caller{UserID: admin.ID, Role: models.RoleAdmin}, admin.ID, 999, audit.Meta{})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing grantee: expected NotFound, got %v", err)
	}

	// грантором может быть только ADMIN
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	err = svc.Grant(core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}, assoc.ID, admin.ID, audit.Meta{})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("associate as grantor: expected InvalidInput, got %v", err)
	}
}

// Роль меняет только сисадмин, и только на известную.
func TestUpdateRoleAuthority(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	newRole := models.RoleAdmin
	_, err := svc.Update(core.Caller{UserID: admin.ID, Role: models.RoleAdmin}, assoc.ID,
		UpdateInput{Role: &newRole}, audit.Meta{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("admin setting role: expected Forbidden, got %v", err)
	}

	// себе роль тоже не поднять
	_, err = svc.Update(core.Caller{UserID: assoc.ID, Role: models.RoleAssociate}, assoc.ID,
		UpdateInput{Role: &newRole}, audit.Meta{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("self role change: expected Forbidden, got %v", err)
	}

	got, err := svc.Update(core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}, assoc.ID,
		UpdateInput{Role: &newRole}, audit.Meta{})
	if err != nil {
		t.Fatalf("sys admin setting role: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Fatalf("role not applied: %s", got.Role)
	}

	bad := models.UserRole("OVERLORD")
	_, err = svc.Update(core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}, assoc.ID,
		UpdateInput{Role: &bad}, audit.Meta{})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("unknown role: expected InvalidInput, got %v", err)
	}
}

func TestUpdateDeactivates(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	inactive := false
	got, err := svc.Update(core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}, assoc.ID,
		UpdateInput{IsActive: &inactive}, audit.Meta{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.IsActive {
		t.Fatalf("account still active")
	}

	_, err = svc.Update(core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}, 999,
		UpdateInput{IsActive: &inactive}, audit.Meta{})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing target: expected NotFound, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, _, db := setup(t)
	sys := seedUser(t, db, models.RoleSysAdmin, "sys@x.com")
	admin := seedUser(t, db, models.RoleAdmin, "admin@x.com")
	assoc := seedUser(t, db, models.RoleAssociate, "assoc@x.com")

	sysCaller := core.Caller{UserID: sys.ID, Role: models.RoleSysAdmin}
	if err := svc.Grant(sysCaller, admin.ID, assoc.ID, audit.Meta{}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := svc.Revoke(sysCaller, admin.ID, assoc.ID, audit.Meta{}); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	vis, err := visibility.Resolve(db, core.Caller{UserID: admin.ID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if vis.Allows(assoc.ID) {
		t.Fatalf("revoked associate still visible")
	}

	// повторный отзыв — NotFound
	if err := svc.Revoke(sysCaller, admin.ID, assoc.ID, audit.Meta{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	// после отзыва можно делегировать заново
	if err := svc.Grant(sysCaller, admin.ID, assoc.ID, audit.Meta{}); err != nil {
		t.Fatalf("re-grant after revoke: %v", err)
	}
}
