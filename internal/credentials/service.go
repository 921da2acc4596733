package credentials

import (
	"errors"
	"fmt"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/core"
	"pharma-crm/internal/models"
	"pharma-crm/internal/obs"

	"gorm.io/gorm"
)

// Service — операции над учётными данными с проверкой ролей и аудитом.
type Service struct {
	db    *gorm.DB
	store *Store
	rec   *audit.Recorder
}

func NewService(db *gorm.DB, rec *audit.Recorder) *Service {
	return &Service{db: db, store: NewStore(db), rec: rec}
}

func (s *Service) Store() *Store { return s.store }

// Authenticate checks email+password for login. Inactive accounts and
// bad passwords both come back as Unauthorized; failures are audited.
func (s *Service) Authenticate(email, plaintext string, meta audit.Meta) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		obs.AuthFailures.Inc()
		s.rec.Record(audit.Event{
			Action:     audit.ActionAuthFailed,
			EntityType: audit.EntityUser,
			Details:    "unknown email: " + email,
			Meta:       meta,
		})
		return nil, core.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		obs.AuthFailures.Inc()
		s.rec.Record(audit.Event{
			ActorUserID: &user.ID,
			Action:      audit.ActionAuthFailed,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Details:     "account inactive",
			Meta:        meta,
		})
		return nil, core.ErrUnauthorized
	}

	ok, err := s.store.Verify(user.ID, plaintext)
	if err != nil {
		return nil, err
	}
	if !ok {
		obs.AuthFailures.Inc()
		s.rec.Record(audit.Event{
			ActorUserID: &user.ID,
			Action:      audit.ActionAuthFailed,
			EntityType:  audit.EntityUser,
			EntityID:    &user.ID,
			Details:     "wrong password",
			Meta:        meta,
		})
		return nil, core.ErrUnauthorized
	}

	s.rec.Record(audit.Event{
		ActorUserID: &user.ID,
		Action:      audit.ActionLogin,
		EntityType:  audit.EntityUser,
		EntityID:    &user.ID,
		Meta:        meta,
	})
	return &user, nil
}

// Reset issues a new credential for another user. Only ADMIN and
// SYS_ADMIN may reset, and an ADMIN may never reset a SYS_ADMIN.
// The target gets FirstLogin set so they must change it themselves.
func (s *Service) Reset(caller core.Caller, targetID uint, plaintext string, meta audit.Meta) error {
	if !caller.IsAdmin() {
		return core.ErrForbidden
	}

	var target models.User
	err := s.db.First(&target, targetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}

	if target.Role == models.RoleSysAdmin && caller.Role != models.RoleSysAdmin {
		return core.ErrForbidden
	}

	if err := ValidatePassword(plaintext); err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.store.SetWithin(tx, target.ID, plaintext); err != nil {
			return err
		}
		return tx.Model(&target).Update("first_login", true).Error
	})
	if err != nil {
		return err
	}

	obs.CredentialResets.Inc()
	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionPasswordReset,
		EntityType:  audit.EntityCredential,
		EntityID:    &target.ID,
		Details:     fmt.Sprintf("credential reset for user %d", target.ID),
		Meta:        meta,
	})
	return nil
}

// Rotate is the self-service password change: current password must
// verify before the new one is set.
func (s *Service) Rotate(caller core.Caller, current, next string, meta audit.Meta) error {
	if caller.UserID == 0 {
		return core.ErrUnauthorized
	}

	ok, err := s.store.Verify(caller.UserID, current)
	if err != nil {
		return err
	}
	if !ok {
		obs.AuthFailures.Inc()
		s.rec.Record(audit.Event{
			ActorUserID: &caller.UserID,
			Action:      audit.ActionAuthFailed,
			EntityType:  audit.EntityCredential,
			EntityID:    &caller.UserID,
			Details:     "wrong current password on rotate",
			Meta:        meta,
		})
		return core.ErrIncorrectCurrent
	}

	if err := ValidatePassword(next); err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.store.SetWithin(tx, caller.UserID, next); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", caller.UserID).
			Update("first_login", false).Error
	})
	if err != nil {
		return err
	}

	s.rec.Record(audit.Event{
		ActorUserID: &caller.UserID,
		Action:      audit.ActionPasswordChange,
		EntityType:  audit.EntityCredential,
		EntityID:    &caller.UserID,
		Meta:        meta,
	})
	return nil
}
