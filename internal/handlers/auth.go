package handlers

import (
	"log"
	"net/http"

	"pharma-crm/internal/authn"
	"pharma-crm/internal/core"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"isActive":   u.IsActive,
		"phone":      u.Phone,
		"territory":  u.Territory,
		"firstLogin": u.FirstLogin,
	}
}

// Login выдаёт bearer-токен и параллельно ставит cookie-сессию
// для браузерной части.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "body", Message: "email and password are required"})
		return
	}

	user, err := h.creds.Authenticate(req.Email, req.Password, middleware.MetaFrom(c))
	if err != nil {
		fail(c, err)
		return
	}

	token, err := authn.IssueToken([]byte(h.cfg.JWTSecret), user)
	if err != nil {
		fail(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Set("user_id", user.ID)
	// токен уже выдан, так что вход не валим — но браузерная
	// сессия без cookie работать не будет
	if err := sess.Save(); err != nil {
		log.Printf("session: failed to save for user %d: %v", user.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userPayload(user),
	})
}

func (h *Handler) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	if err := sess.Save(); err != nil {
		log.Printf("session: failed to clear: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Me(c *gin.Context) {
	cl := caller(c)

	var user models.User
	if err := h.db.First(&user, cl.UserID).Error; err != nil {
		fail(c, core.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, userPayload(&user))
}

type changePasswordRequest struct {
	Current string `json:"current" binding:"required"`
	New     string `json:"new" binding:"required"`
}

// ChangePassword — самостоятельная смена пароля.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &core.ValidationError{Field: "body", Message: "current and new passwords are required"})
		return
	}

	if err := h.creds.Rotate(caller(c), req.Current, req.New, middleware.MetaFrom(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
