package sync_test

import (
	"fmt"
	"testing"
	"time"

	"tunesync/core/database"
	"tunesync/core/middleware/identity"
	"tunesync/feature/sync"
	"tunesync/feature/sync/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database with the full sync schema,
// unique indexes included. The shared-cache DSN keeps the database alive
// across the pool's connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver: "sqlite",
		Name:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func testConfig() sync.Config {
	return sync.Config{
		LookbackDays:           30,
		MaxBatchSize:           100,
		HistoryLimit:           100,
		NewSongsLimit:          50,
		FullDownloadsLimit:     500,
		FullHistoryLimit:       100,
		StreamURLExpiryMinutes: 15,
	}
}

func seedUser(t *testing.T, db *gorm.DB, account string) models.User {
	t.Helper()
	u := models.User{Account: account, DisplayName: account}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func seedArtist(t *testing.T, db *gorm.DB, ownerID uint, name string) models.Artist {
	t.Helper()
	a := models.Artist{UserID: ownerID, StageName: name}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func seedSong(t *testing.T, db *gorm.DB, artistID uint, title string, status models.SongStatus, createdAt time.Time) models.Song {
	t.Helper()
	s := models.Song{
		ArtistID:        artistID,
		Title:           title,
		DurationSeconds: 180,
		FileKey:         "audio/" + title + ".mp3",
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func asUser(u models.User) identity.UserContext {
	return identity.UserContext{UserID: u.ID, Account: u.Account}
}

func asUserID(id uint) identity.UserContext {
	return identity.UserContext{UserID: id}
}

func songByID(t *testing.T, db *gorm.DB, id uint) models.Song {
	t.Helper()
	var s models.Song
	require.NoError(t, db.Where("id = ?", id).Take(&s).Error)
	return s
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
