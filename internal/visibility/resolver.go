package visibility

import (
	"sort"

	"pharma-crm/internal/core"
	"pharma-crm/internal/models"

	"gorm.io/gorm"
)

// Visibility — разрешённый набор владельцев записей.
// All=true — сентинел "без фильтра" (SYS_ADMIN), пустой набор означает "никого".
type Visibility struct {
	All     bool
	UserIDs []uint
}

// Resolve computes the set of user ids whose records the caller may see.
// SYS_ADMIN gets the no-filter sentinel, ADMIN gets self plus delegated
// associates from the access-grant table, everyone else (including any
// unrecognized role) gets self only. Re-evaluated per request, never cached.
func Resolve(db *gorm.DB, caller core.Caller) (Visibility, error) {
	if caller.UserID == 0 {
		return Visibility{}, core.ErrUnauthorized
	}

	switch caller.Role {
	case models.RoleSysAdmin:
		return Visibility{All: true}, nil

	case models.RoleAdmin:
		var granted []uint
		err := db.Model(&models.AccessGrant{}).
			Where("admin_id = ?", caller.UserID).
			Pluck("user_id", &granted).Error
		if err != nil {
			return Visibility{}, err
		}

		seen := map[uint]struct{}{caller.UserID: {}}
		ids := []uint{caller.UserID}
		for _, id := range granted {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return Visibility{UserIDs: ids}, nil

	default:
		// неизвестная роль = минимум прав, никогда не "без фильтра"
		return Visibility{UserIDs: []uint{caller.UserID}}, nil
	}
}

// Allows reports whether records owned by userID fall inside the set.
func (v Visibility) Allows(userID uint) bool {
	if v.All {
		return true
	}
	for _, id := range v.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Scope adds the ownership predicate on user_id, unless the set is the
// no-filter sentinel.
func (v Visibility) Scope(db *gorm.DB) *gorm.DB {
	return v.ScopeColumn("user_id")(db)
}

// ScopeColumn is Scope over an arbitrary owner column.
func (v Visibility) ScopeColumn(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if v.All {
			return db
		}
		return db.Where(column+" IN ?", v.UserIDs)
	}
}
