package handlers

import (
	"net/http"
	"strconv"

	"pharma-crm/internal/core"
	"pharma-crm/internal/query"
	"pharma-crm/internal/visibility"

	"github.com/gin-gonic/gin"
)

// ListAudit — журнал безопасности. Роут доступен только ADMIN и
// SYS_ADMIN; события за авторством SYS_ADMIN в админской выдаче
// скрыты всегда.
func (h *Handler) ListAudit(c *gin.Context) {
	p, err := parsePage(c)
	if err != nil {
		fail(c, err)
		return
	}

	cl := caller(c)
	vis, err := visibility.Resolve(h.db, cl)
	if err != nil {
		fail(c, err)
		return
	}

	from, err := parseDate(c.Query("from"))
	if err != nil {
		fail(c, err)
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		fail(c, err)
		return
	}

	var actorID, entityID uint
	if raw := c.Query("userId"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, &core.ValidationError{Field: "userId", Message: "must be an id"})
			return
		}
		actorID = uint(n)
	}
	if raw := c.Query("entityId"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			fail(c, &core.ValidationError{Field: "entityId", Message: "must be an id"})
			return
		}
		entityID = uint(n)
	}

	f := query.AuditFilter{
		ActorUserID: actorID,
		Action:      c.Query("action"),
		EntityType:  c.Query("entityType"),
		EntityID:    entityID,
		From:        from,
		To:          to,
	}

	items, info, err := query.AuditEvents(h.db, cl, vis, f, p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse(items, info))
}

// Dashboard — сводные счётчики в рамках видимости вызывающего.
func (h *Handler) Dashboard(c *gin.Context) {
	vis, err := visibility.Resolve(h.db, caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	counts, err := query.Dashboard(h.db, vis)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
