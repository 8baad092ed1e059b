package identity

import (
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// OfKind returns a GORM scope that filters cases by kind.
func OfKind(kind workflow.Kind) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("cases.kind = ?", string(kind))
	}
}

// OwnedBy returns a GORM scope that keeps the principal's own cases.
func OwnedBy(p workflow.Principal) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("cases.owner_id = ?", p.ID)
	}
}

// AssignedTo returns a GORM scope that keeps cases the principal is
// assigned to.
func AssignedTo(p workflow.Principal) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("cases.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Table("case_assignees").Select("case_id").Where("shaykh_id = ?", p.ID))
	}
}

// VisibleTo narrows a case listing to what p may see: everything for an
// admin, assigned cases for a shaykh, own cases for anyone else.
func VisibleTo(p workflow.Principal) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch p.Role {
		case workflow.RoleAdmin:
			return db
		case workflow.RoleShaykh:
			return AssignedTo(p)(db)
		default:
			return OwnedBy(p)(db)
		}
	}
}

// WithStatus filters by status when one is given.
func WithStatus(statuses ...workflow.Status) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 0 {
			return db
		}
		values := make([]string, len(statuses))
		for i, s := range statuses {
			values[i] = string(s)
		}
		return db.Where("cases.status IN ?", values)
	}
}
