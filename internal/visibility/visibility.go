// Package visibility narrows content queries to what a viewer may see.
// PRIVATE rows are returned only to their owner; everyone else sees PUBLIC
// rows. The scope must be composed into a query before pagination and
// ordering, never applied as a post-filter.
package visibility

import (
	"github.com/wavefm/wave-backend/internal/models"
	"gorm.io/gorm"
)

// Scope returns a gorm scope restricting rows to those visible to viewerID.
// An empty viewerID means an anonymous viewer.
func Scope(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == "" {
			return db.Where("status = ?", models.StatusPublic)
		}
		return db.Where("status = ? OR (status = ? AND user_id = ?)",
			models.StatusPublic, models.StatusPrivate, viewerID)
	}
}

// ScopeTable is Scope with table-qualified columns, for joined queries where
// "status" would otherwise be ambiguous.
func ScopeTable(table, viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == "" {
			return db.Where(table+".status = ?", models.StatusPublic)
		}
		return db.Where(table+".status = ? OR ("+table+".status = ? AND "+table+".user_id = ?)",
			models.StatusPublic, models.StatusPrivate, viewerID)
	}
}

// PublicOnly restricts rows to PUBLIC regardless of viewer.
func PublicOnly() func(*gorm.DB) *gorm.DB {
	return Scope("")
}
