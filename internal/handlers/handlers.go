package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"pharma-crm/internal/audit"
	"pharma-crm/internal/config"
	"pharma-crm/internal/core"
	"pharma-crm/internal/credentials"
	"pharma-crm/internal/middleware"
	"pharma-crm/internal/query"
	"pharma-crm/internal/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db    *gorm.DB
	cfg   *config.Config
	rec   *audit.Recorder
	creds *credentials.Service
	users *users.Service
}

func New(db *gorm.DB, cfg *config.Config) *Handler {
	rec := audit.NewRecorder(db)
	creds := credentials.NewService(db, rec)
	return &Handler{
		db:    db,
		cfg:   cfg,
		rec:   rec,
		creds: creds,
		users: users.NewService(db, creds.Store(), rec),
	}
}

// fail maps the error taxonomy onto HTTP statuses. Anything outside the
// taxonomy is logged in full and surfaced as a generic internal error.
func fail(c *gin.Context, err error) {
	var ve *core.ValidationError

	switch {
	case errors.Is(err, core.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, core.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, core.ErrIncorrectCurrent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect current password"})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid input",
			"field":   ve.Field,
			"message": ve.Message,
		})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, core.ErrInvalidPagination):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination"})
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func caller(c *gin.Context) core.Caller {
	// роуты за RequireAuth, отсутствие caller сюда не доходит
	cl, _ := middleware.CallerFrom(c)
	return cl
}

func parsePage(c *gin.Context) (query.Page, error) {
	p := query.Page{Page: 1, Limit: 20}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query.Page{}, core.ErrInvalidPagination
		}
		p.Page = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query.Page{}, core.ErrInvalidPagination
		}
		p.Limit = n
	}
	return p, nil
}

func parseID(c *gin.Context, param string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || n == 0 {
		return 0, &core.ValidationError{Field: param, Message: "must be a positive id"}
	}
	return uint(n), nil
}

func listResponse(items interface{}, info query.PageInfo) gin.H {
	return gin.H{
		"items":      items,
		"total":      info.Total,
		"totalPages": info.TotalPages,
	}
}
