package core

import "pharma-crm/internal/models"

// Caller — аутентифицированная личность запроса, выданная внешним
// издателем токена. Передаётся явно во все операции ядра, из
// глобального состояния не читается.
type Caller struct {
	UserID uint
	Role   models.UserRole
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin || c.Role == models.RoleSysAdmin
}
