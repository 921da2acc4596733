package users

import (
	"errors"
	"fmt"
	"strings"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/core"
	"pharma-crm/internal/credentials"
	"pharma-crm/internal/models"

	"gorm.io/gorm"
)

// Service — управление пользователями: заведение аккаунтов,
// делегирование и отзыв доступа.
type Service struct {
	db    *gorm.DB
	store *credentials.Store
	rec   *audit.Recorder
}

func NewService(db *gorm.DB, store *credentials.Store, rec *audit.Recorder) *Service {
	return &Service{db: db, store: store, rec: rec}
}

type ProvisionInput struct {
	Name      string
	Email     string
	Phone     string
	Territory string
	Role      models.UserRole
	Password  string

	// GrantUserIDs — ассоциаты, делегируемые заводимому админу.
	GrantUserIDs []uint
}

func validateProvision(in ProvisionInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &core.ValidationError{Field: "name", Message: "is required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &core.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	switch in.Role {
	case models.RoleSysAdmin, models.RoleAdmin, models.RoleAssociate:
	default:
		return &core.ValidationError{Field: "role", Message: "is not a known role"}
	}
	if in.Role != models.RoleAdmin && len(in.GrantUserIDs) > 0 {
		return &core.ValidationError{Field: "grantUserIds", Message: "only an ADMIN can hold grants"}
	}
	return credentials.ValidatePassword(in.Password)
}

// Provision creates the user, their access grants and their credential
// in a single transaction: either all three persist or none do.
// An ADMIN caller may only provision ASSOCIATEs; SYS_ADMIN may provision
// any role.
func (s *Service) Provision(caller core.Caller, in ProvisionInput, meta audit.Meta) (*models.User, error) {
	switch caller.Role {
	case models.RoleSysAdmin:
	case models.RoleAdmin:
		if in.Role != models.RoleAssociate {
			return nil, core.ErrForbidden
		}
	default:
		return nil, core.ErrForbidden
	}

	if err := validateProvision(in); err != nil {
		return nil, err
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	user := models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      in.Email,
		Role:       in.Role,
		IsActive:   true,
		Phone:      in.Phone,
		Territory:  in.Territory,
		FirstLogin: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return core.ErrConflict
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		seen := map[uint]struct{}{}
		for _, granteeID := range in.GrantUserIDs {
			if _, ok := seen[granteeID]; ok {
				continue
			}
			seen[granteeID] = struct{}{}

			var grantee models.User
			if err := tx.First(&grantee, granteeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &core.ValidationError{
						Field:   "grantUserIds",
						Message: fmt.Sprintf("user %d does not exist", granteeID),
					}
				}
				return err
			}
			if err := tx.Create(&models.AccessGrant{AdminID: user.ID, UserID: granteeID}).Error; err != nil {
				return err
			}
		}

		return s.store.SetWithin(tx, user.ID, in.Password)
	})
	if err != nil {
		return nil, err
	}

	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionCreate,
		EntityType:  audit.EntityUser,
		EntityID:    &user.ID,
		Details:     fmt.Sprintf("created %s %s with %d grants", user.Role, user.Email, len(in.GrantUserIDs)),
		Meta:        meta,
	})
	return &user, nil
}

// Grant delegates an associate's records to an admin. SYS_ADMIN may
// create any grant, an ADMIN only grants to themselves.
func (s *Service) Grant(caller core.Caller, adminID, userID uint, meta audit.Meta) error {
	if err := s.checkGrantAuthority(caller, adminID); err != nil {
		return err
	}

	var admin models.User
	if err := s.db.First(&admin, adminID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.ErrNotFound
		}
		return err
	}
	if admin.Role != models.RoleAdmin {
		return &core.ValidationError{Field: "adminId", Message: "grantor must have role ADMIN"}
	}

	var grantee models.User
	if err := s.db.First(&grantee, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.ErrNotFound
		}
		return err
	}

	var count int64
	err := s.db.Model(&models.AccessGrant{}).
		Where("admin_id = ? AND user_id = ?", adminID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return core.ErrConflict
	}

	if err := s.db.Create(&models.AccessGrant{AdminID: adminID, UserID: userID}).Error; err != nil {
		return err
	}

	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionGrantCreated,
		EntityType:  audit.EntityAccessGrant,
		EntityID:    &userID,
		Details:     fmt.Sprintf("admin %d granted access to user %d", adminID, userID),
		Meta:        meta,
	})
	return nil
}

// Revoke removes a grant. Takes effect on the next request, since
// visibility is resolved per request.
func (s *Service) Revoke(caller core.Caller, adminID, userID uint, meta audit.Meta) error {
	if err := s.checkGrantAuthority(caller, adminID); err != nil {
		return err
	}

	res := s.db.Where("admin_id = ? AND user_id = ?", adminID, userID).
		Delete(&models.AccessGrant{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}

	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionGrantRevoked,
		EntityType:  audit.EntityAccessGrant,
		EntityID:    &userID,
		Details:     fmt.Sprintf("admin %d access to user %d revoked", adminID, userID),
		Meta:        meta,
	})
	return nil
}

// UpdateInput — nil-поля не трогаем.
type UpdateInput struct {
	Name      *string
	Phone     *string
	Territory *string
	IsActive  *bool
	Role      *models.UserRole
}

// Update edits an account. SYS_ADMIN only: role and active status are
// never self-service, and nobody below SYS_ADMIN may touch them.
func (s *Service) Update(caller core.Caller, targetID uint, in UpdateInput, meta audit.Meta) (*models.User, error) {
	if caller.Role != models.RoleSysAdmin {
		return nil, core.ErrForbidden
	}

	var target models.User
	if err := s.db.First(&target, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}

	if in.Role != nil {
		switch *in.Role {
		case models.RoleSysAdmin, models.RoleAdmin, models.RoleAssociate:
			target.Role = *in.Role
		default:
			return nil, &core.ValidationError{Field: "role", Message: "is not a known role"}
		}
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &core.ValidationError{Field: "name", Message: "is required"}
		}
		target.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		target.Phone = *in.Phone
	}
	if in.Territory != nil {
		target.Territory = *in.Territory
	}
	if in.IsActive != nil {
		target.IsActive = *in.IsActive
	}

	if err := s.db.Save(&target).Error; err != nil {
		return nil, err
	}

	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionUpdate,
		EntityType:  audit.EntityUser,
		EntityID:    &target.ID,
		Details:     "updated account " + target.Email,
		Meta:        meta,
	})
	return &target, nil
}

func (s *Service) checkGrantAuthority(caller core.Caller, adminID uint) error {
	switch caller.Role {
	case models.RoleSysAdmin:
		return nil
	case models.RoleAdmin:
		if caller.UserID == adminID {
			return nil
		}
		return core.ErrForbidden
	default:
		return core.ErrForbidden
	}
}
