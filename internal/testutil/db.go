// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"turapay/internal/models"
	"turapay/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	t.Cleanup(func() { repositories.Close(db) })
	return db
}

// CreateUser inserts a user with a bcrypt-hashed "Passw0rd!" password.
func CreateUser(t *testing.T, db *gorm.DB, email string, verified bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("Passw0rd!"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		Password:     string(hash),
		Name:         "Test " + email,
		Phone:        "+2609" + uuid.NewString()[:8],
		Country:      "US",
		Role:         models.RoleUser,
		Verified:     verified,
		TokenVersion: 1,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// SetSetting overwrites a setting row.
func SetSetting(t *testing.T, db *gorm.DB, key, value string) {
	t.Helper()
	require.NoError(t, db.Save(&models.Setting{Key: key, Value: value}).Error)
}

// CreateTransaction inserts a transaction in the given status.
func CreateTransaction(t *testing.T, db *gorm.DB, id string, senderID uint, status models.TransactionStatus) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		ID:             id,
		SenderID:       senderID,
		ReceiverName:   "Mwila Banda",
		ReceiverPhone:  "0977000000",
		Amount:         100,
		Fee:            2,
		TotalAmount:    102,
		Currency:       "USD",
		ExchangeRate:   27.5,
		PayoutCurrency: "ZMW",
		PayoutAmount:   2750,
		PayoutMethod:   models.PayoutMobileMoney,
		Status:         status,
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}
