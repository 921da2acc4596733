package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"pharma-crm/internal/models"

	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"
)

const (
	saltBytes   = 16
	pbkdf2Iters = 100_000
	digestBytes = 32
)

// Store хранит пары соль+дайджест, по одной на пользователя.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func newSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func computeDigest(plaintext, salt string) string {
	key := pbkdf2.Key([]byte(plaintext), []byte(salt), pbkdf2Iters, digestBytes, sha256.New)
	return hex.EncodeToString(key)
}

// Set replaces the user's credential with a fresh salt and digest.
// The pair is written atomically so old and new never mix: after Set
// returns, only the new plaintext verifies.
func (s *Store) Set(userID uint, plaintext string) error {
	return s.SetWithin(s.db, userID, plaintext)
}

// SetWithin is Set inside an existing transaction, for flows where the
// credential must commit together with other rows.
func (s *Store) SetWithin(tx *gorm.DB, userID uint, plaintext string) error {
	salt, err := newSalt()
	if err != nil {
		return err
	}
	digest := computeDigest(plaintext, salt)

	return tx.Transaction(func(tx *gorm.DB) error {
		var cred models.Credential
		err := tx.Where("user_id = ?", userID).First(&cred).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.Credential{UserID: userID, Salt: salt, Digest: digest}).Error
		}
		if err != nil {
			return err
		}
		// соль и дайджест меняются только парой
		return tx.Model(&cred).Updates(map[string]interface{}{
			"salt":   salt,
			"digest": digest,
		}).Error
	})
}

// Verify recomputes the digest with the stored salt and compares in
// constant time. Unknown user yields (false, nil) — no existence leak.
func (s *Store) Verify(userID uint, plaintext string) (bool, error) {
	var cred models.Credential
	err := s.db.Where("user_id = ?", userID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	got := computeDigest(plaintext, cred.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(cred.Digest)) == 1, nil
}
