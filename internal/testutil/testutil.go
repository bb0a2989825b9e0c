// Package testutil holds database helpers and fixtures shared by tests.
package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bluerally/buooy-backend/internal/models"
)

// NewSQLiteDB opens a private in-memory database with every model migrated.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// each connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB returns gorm on the postgres dialector over sqlmock.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// CreateUser inserts a user named name.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:          name,
		Email:         name + "@example.com",
		LoginPlatform: models.PlatformGoogle,
		SnsID:         "sns-" + name,
		IsActive:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateSport inserts a sport.
func CreateSport(t *testing.T, db *gorm.DB, name string) *models.Sport {
	t.Helper()
	sport := &models.Sport{Name: name}
	require.NoError(t, db.Create(sport).Error)
	return sport
}

// CreateParty inserts an active party gathering at gatherAt.
func CreateParty(t *testing.T, db *gorm.DB, organizer *models.User, gatherAt time.Time, limit int) *models.Party {
	t.Helper()
	party := &models.Party{
		Title:            fmt.Sprintf("party by %s", organizer.Name),
		Body:             "bring water",
		GatherAt:         gatherAt.UTC(),
		OrganizerID:      organizer.ID,
		ParticipantLimit: limit,
		IsActive:         true,
	}
	require.NoError(t, db.Omit("Organizer", "Sport").Create(party).Error)
	return party
}

// CreateParticipant inserts a participation row in the given status.
func CreateParticipant(t *testing.T, db *gorm.DB, party *models.Party, user *models.User, status models.ParticipationStatus) *models.PartyParticipant {
	t.Helper()
	p := &models.PartyParticipant{PartyID: party.ID, ParticipantID: user.ID, Status: status}
	require.NoError(t, db.Omit("Participant").Create(p).Error)
	return p
}

// NotificationsFor returns every notification addressed to userID.
func NotificationsFor(t *testing.T, db *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, db.Where("target_user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}
