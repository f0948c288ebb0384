package sync_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"tunesync/core/storage/mocks"
	"tunesync/feature/sync"
	"tunesync/feature/sync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAssembler(db *gorm.DB) *sync.Assembler {
	return sync.NewAssembler(db, nil, "", testConfig(), zap.NewNop())
}

func TestHistory_CursorMonotonicity(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())

	cursor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{-time.Hour, 0, time.Hour, 2 * time.Hour} {
		entry := models.PlayHistory{
			UserID:   user.ID,
			SongID:   song.ID,
			PlayedAt: cursor.Add(offset),
		}
		require.NoError(t, db.Create(&entry).Error)
	}

	items, err := newAssembler(db).History(context.Background(), user.ID, cursor, 100)
	require.NoError(t, err)
	require.Len(t, items, 2, "entries at or before the cursor must be excluded")
	for _, it := range items {
		assert.True(t, it.PlayedAt.After(cursor))
	}
	// Newest first.
	assert.True(t, items[0].PlayedAt.After(items[1].PlayedAt))
}

func TestHistory_Capped(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		entry := models.PlayHistory{UserID: user.ID, SongID: song.ID, PlayedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&entry).Error)
	}

	items, err := newAssembler(db).History(context.Background(), user.ID, base.Add(-time.Hour), 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestDownloads_JoinsSongSummaries(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	owner := seedUser(t, db, "owner")
	artist := seedArtist(t, db, owner.ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())

	dl := models.Download{UserID: user.ID, SongID: song.ID, Quality: "high", SizeBytes: 4 << 20}
	require.NoError(t, db.Create(&dl).Error)

	out, err := newAssembler(db).Downloads(context.Background(), user.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "one", out[0].Title)
	assert.Equal(t, "The Owners", out[0].ArtistName)
	assert.Equal(t, "high", out[0].Quality)
	assert.Empty(t, out[0].StreamURL, "no store wired, no URL")
}

func TestDownloads_PresignsStreamURL(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	require.NoError(t, db.Create(&models.Download{UserID: user.ID, SongID: song.ID}).Error)

	signed, _ := url.Parse("https://store.example/audio/one.mp3?signed=yes")
	store := new(mocks.Client)
	store.On("PresignedGetObject", mock.Anything, "audio", song.FileKey, mock.Anything, mock.Anything).
		Return(signed, nil)

	asm := sync.NewAssembler(db, store, "audio", testConfig(), zap.NewNop())
	out, err := asm.Downloads(context.Background(), user.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, signed.String(), out[0].StreamURL)
	store.AssertExpectations(t)
}

func TestPlaylists_WholePlaylistWithMembership(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	one := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	two := seedSong(t, db, artist.ID, "two", models.SongApproved, time.Now().UTC())

	pl := models.Playlist{UserID: user.ID, Name: "Road trip"}
	require.NoError(t, db.Create(&pl).Error)
	require.NoError(t, db.Create(&models.PlaylistSong{PlaylistID: pl.ID, SongID: two.ID, Position: 2}).Error)
	require.NoError(t, db.Create(&models.PlaylistSong{PlaylistID: pl.ID, SongID: one.ID, Position: 1}).Error)

	out, err := newAssembler(db).Playlists(context.Background(), user.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Songs, 2)
	assert.Equal(t, one.ID, out[0].Songs[0].SongID, "membership ordered by position")
	assert.Equal(t, two.ID, out[0].Songs[1].SongID)
}

func TestNewSongs_OnlyApprovedFromFollowedArtists(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	followedOwner := seedUser(t, db, "followed")
	otherOwner := seedUser(t, db, "other")
	followed := seedArtist(t, db, followedOwner.ID, "Followed")
	other := seedArtist(t, db, otherOwner.ID, "Other")

	cursor := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	fresh := cursor.Add(24 * time.Hour)
	seedSong(t, db, followed.ID, "fresh-approved", models.SongApproved, fresh)
	seedSong(t, db, followed.ID, "fresh-pending", models.SongPending, fresh)
	seedSong(t, db, followed.ID, "stale-approved", models.SongApproved, cursor.Add(-24*time.Hour))
	seedSong(t, db, other.ID, "unfollowed-approved", models.SongApproved, fresh)

	require.NoError(t, db.Create(&models.Follow{FollowerID: user.ID, FollowingID: followedOwner.ID}).Error)

	out, err := newAssembler(db).NewSongs(context.Background(), user.ID, cursor, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "fresh-approved", out[0].Title)
	assert.Equal(t, "Followed", out[0].ArtistName)
}

func TestLikedSongIDs_EmptyIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")

	ids, err := newAssembler(db).LikedSongIDs(context.Background(), user.ID, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestStatistics_Totals(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Download{UserID: user.ID, SongID: song.ID}).Error)
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.Playlist{UserID: user.ID, Name: "p"}).Error)
	}
	for i := 0; i < 5; i++ {
		like := models.Like{UserID: user.ID, TargetKind: models.LikeTargetSong, TargetID: uint(100 + i)}
		require.NoError(t, db.Create(&like).Error)
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		entry := models.PlayHistory{UserID: user.ID, SongID: song.ID, PlayedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.Create(&entry).Error)
	}

	stats, err := newAssembler(db).Statistics(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalDownloads)
	assert.EqualValues(t, 2, stats.TotalPlaylists)
	assert.EqualValues(t, 5, stats.TotalLikedSongs)
	assert.EqualValues(t, 40, stats.TotalPlayCount)
}
