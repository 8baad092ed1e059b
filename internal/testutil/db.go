// Package testutil opens throwaway databases and seeds fixtures for package
// tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
// It holds a single connection, so concurrent transactions queue instead of
// interleaving.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t testing.TB, db *gorm.DB, role string) *models.User {
	t.Helper()

	id := uuid.New()
	user := &models.User{
		ID:        id,
		Email:     fmt.Sprintf("%s-%s@example.com", role, id.String()[:8]),
		Username:  role + "-" + id.String()[:8],
		Password:  passwordHash(),
		Role:      role,
		FirstName: "Test",
		LastName:  role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Password is the plain-text password of every fixture user.
const Password = "password123"

var passwordHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
})
