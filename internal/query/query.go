package query

import (
	"time"

	"pharma-crm/internal/core"
	"pharma-crm/internal/models"
	"pharma-crm/internal/visibility"

	"gorm.io/gorm"
)

// Page — 1-базная страница.
type Page struct {
	Page  int
	Limit int
}

// PageInfo accompanies every list result.
type PageInfo struct {
	Total      int64
	TotalPages int
}

func (p Page) validate() error {
	if p.Page < 1 || p.Limit < 1 {
		return core.ErrInvalidPagination
	}
	return nil
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

func pageInfo(total int64, limit int) PageInfo {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return PageInfo{Total: total, TotalPages: pages}
}

type ProspectFilter struct {
	Status    models.ProspectStatus
	Territory string
}

// Prospects lists prospects inside the visibility set, newest first.
// Ties on the timestamp are broken by id so pagination stays stable.
func Prospects(db *gorm.DB, vis visibility.Visibility, f ProspectFilter, p Page) ([]models.Prospect, PageInfo, error) {
	if err := p.validate(); err != nil {
		return nil, PageInfo{}, err
	}

	q := db.Model(&models.Prospect{}).Scopes(vis.Scope)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Territory != "" {
		q = q.Where("territory = ?", f.Territory)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var items []models.Prospect
	err := q.Order("created_at DESC, id DESC").Scopes(p.scope).Find(&items).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items, pageInfo(total, p.Limit), nil
}

type ActivityFilter struct {
	Type       models.ActivityType
	ProspectID uint
	From       time.Time
	To         time.Time
}

// Activities orders by occurrence time rather than row creation.
func Activities(db *gorm.DB, vis visibility.Visibility, f ActivityFilter, p Page) ([]models.Activity, PageInfo, error) {
	if err := p.validate(); err != nil {
		return nil, PageInfo{}, err
	}

	q := db.Model(&models.Activity{}).Scopes(vis.Scope)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.ProspectID != 0 {
		q = q.Where("prospect_id = ?", f.ProspectID)
	}
	if !f.From.IsZero() {
		q = q.Where("occurred_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("occurred_at <= ?", f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var items []models.Activity
	err := q.Order("occurred_at DESC, id DESC").Scopes(p.scope).Find(&items).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items, pageInfo(total, p.Limit), nil
}

type TaskFilter struct {
	Status   models.TaskStatus
	Priority models.TaskPriority
}

func Tasks(db *gorm.DB, vis visibility.Visibility, f TaskFilter, p Page) ([]models.Task, PageInfo, error) {
	if err := p.validate(); err != nil {
		return nil, PageInfo{}, err
	}

	q := db.Model(&models.Task{}).Scopes(vis.Scope)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var items []models.Task
	err := q.Order("created_at DESC, id DESC").Scopes(p.scope).Find(&items).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items, pageInfo(total, p.Limit), nil
}

// Users lists accounts inside the visibility set (the account itself is
// owned by its user id).
func Users(db *gorm.DB, vis visibility.Visibility, p Page) ([]models.User, PageInfo, error) {
	if err := p.validate(); err != nil {
		return nil, PageInfo{}, err
	}

	q := db.Model(&models.User{}).Scopes(vis.ScopeColumn("id"))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, PageInfo{}, err
	}

	var items []models.User
	err := q.Order("created_at DESC, id DESC").Scopes(p.scope).Find(&items).Error
	if err != nil {
		return nil, PageInfo{}, err
	}
	return items, pageInfo(total, p.Limit), nil
}

// Counts — сводка для дашборда.
type Counts struct {
	Prospects  int64 `json:"prospects"`
	Activities int64 `json:"activities"`
	Tasks      int64 `json:"tasks"`
	OpenTasks  int64 `json:"openTasks"`
}

func Dashboard(db *gorm.DB, vis visibility.Visibility) (Counts, error) {
	var c Counts
	scope := vis.Scope

	if err := db.Model(&models.Prospect{}).Scopes(scope).Count(&c.Prospects).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&models.Activity{}).Scopes(scope).Count(&c.Activities).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&models.Task{}).Scopes(scope).Count(&c.Tasks).Error; err != nil {
		return Counts{}, err
	}
	err := db.Model(&models.Task{}).Scopes(scope).
		Where("status = ?", models.TaskOpen).
		Count(&c.OpenTasks).Error
	if err != nil {
		return Counts{}, err
	}
	return c, nil
}
