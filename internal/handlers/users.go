package handlers

import (
	"net/http"

	"pharma-crm/internal/core"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/models"
	"pharma-crm/internal/query"
	"pharma-crm/internal/users"
	"pharma-crm/internal/visibility"

	"github.com/gin-gonic/gin"
)

// ListUsers shows the accounts inside the caller's visibility set:
// everyone for SYS_ADMIN, self plus delegated associates for ADMIN.
func (h *Handler) ListUsers(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		fail(c, err)
		return
	}

	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	items, info, err := query.Users(h.db, vis, p)
	if err != nil {
		fail(c, err)
		return
	}

	payload := make([]gin.H, 0, len(items))
	for i := range items {
		payload = append(payload, userPayload(&items[i]))
	}
	c.JSON(http.StatusOK, listResponse(payload, info))
}

type createUserRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Phone        string `json:"phone"`
	Territory    string `json:"territory"`
	Role         string `json:"role" binding:"required"`
	Password     string `json:"password" binding:"required"`
	GrantUserIDs []uint `json:"grantUserIds"`
}

// CreateUser — заведение аккаунта: пользователь, делегирования и
// учётные данные создаются одной транзакцией.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "body", Message: "name, email, role and password are required"})
		return
	}

	user, err := h.users.Provision(caller(c), users.ProvisionInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Territory:    req.Territory,
		Role:         models.UserRole(req.Role),
		Password:     req.Password,
		GrantUserIDs: req.GrantUserIDs,
	}, middleware.MetaFrom(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, userPayload(user))
}

type updateUserRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Territory *string `json:"territory"`
	IsActive  *bool   `json:"isActive"`
	Role      *string `json:"role"`
}

// UpdateUser — правка аккаунта, включая роль и активность.
// Роут закрыт за SYS_ADMIN: роль себе не меняет никто.
func (h *Handler) UpdateUser(c *gin.Context) {
	targetID, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "body", Message: "malformed update"})
		return
	}

	var role *models.UserRole
	if req.Role != nil {
		r := models.UserRole(*req.Role)
		role = &r
	}

	user, err := h.users.Update(caller(c), targetID, users.UpdateInput{
		Name:      req.Name,
		Phone:     req.Phone,
		Territory: req.Territory,
		IsActive:  req.IsActive,
		Role:      role,
	}, middleware.MetaFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userPayload(user))
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ResetPassword — админский сброс пароля другому пользователю.
func (h *Handler) ResetPassword(c *gin.Context) {
	targetID, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "password", Message: "is required"})
		return
	}

	if err := h.creds.Reset(caller(c), targetID, req.Password, middleware.MetaFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type grantRequest struct {
	UserID uint `json:"userId" binding:"required"`
}

// AddGrant делегирует админу :id записи ассоциата userId.
func (h *Handler) AddGrant(c *gin.Context) {
	adminID, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "userId", Message: "is required"})
		return
	}

	if err := h.users.Grant(caller(c), adminID, req.UserID, middleware.MetaFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// RevokeGrant — явный отзыв делегирования. Действует со следующего
// запроса: видимость вычисляется на каждый запрос заново.
func (h *Handler) RevokeGrant(c *gin.Context) {
	adminID, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	userID, err := parseID(c, "userId")
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.users.Revoke(caller(c), adminID, userID, middleware.MetaFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
