package sync_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tunesync/feature/sync"
	"tunesync/feature/sync/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestReplayPlays_Idempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	batch := []models.PlayItem{{SongID: song.ID, PlayedAt: "2025-06-01T09:00:00Z", DurationPlayed: 120, Completed: true}}

	res, err := replayer.ReplayPlays(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)

	// Same batch again: the retry is already synced, not an error.
	res, err = replayer.ReplayPlays(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, res.Errors)

	assert.EqualValues(t, 1, countRows(t, db, &models.PlayHistory{}, "user_id = ? AND song_id = ?", user.ID, song.ID))
	assert.EqualValues(t, 1, songByID(t, db, song.ID).PlayCount, "play_count must move exactly once")
}

func TestReplayPlays_BatchIsolation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	const unknownSong = 9999
	items := make([]models.PlayItem, 0, 10)
	for i := 0; i < 10; i++ {
		id := song.ID
		if i == 4 {
			id = unknownSong
		}
		items = append(items, models.PlayItem{
			SongID:   id,
			PlayedAt: fmt.Sprintf("2025-06-01T09:%02d:00Z", i),
		})
	}

	res, err := replayer.ReplayPlays(context.Background(), asUser(user), items)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Synced)
	assert.Equal(t, 10, res.Total)
	require.Len(t, res.Errors, 1)
	assert.EqualValues(t, unknownSong, res.Errors[0].SongID)
	assert.Equal(t, "song not found", res.Errors[0].Error)

	assert.EqualValues(t, 9, songByID(t, db, song.ID).PlayCount)
}

func TestReplayLikes_Idempotent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	batch := models.ActionBatch{Likes: []models.LikeAction{
		{SongID: song.ID, Action: models.ActionLike},
		{SongID: song.ID, Action: models.ActionLike},
	}}

	res, err := replayer.ReplayActions(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LikesSynced)
	assert.Empty(t, res.Errors)

	assert.EqualValues(t, 1, countRows(t, db, &models.Like{}, "user_id = ? AND target_id = ?", user.ID, song.ID))
	assert.EqualValues(t, 1, songByID(t, db, song.ID).LikeCount, "like_count must move by 1, not 2")
}

func TestReplayLikes_UnlikeWithoutLike(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	batch := models.ActionBatch{Likes: []models.LikeAction{{SongID: song.ID, Action: models.ActionUnlike}}}
	res, err := replayer.ReplayActions(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LikesSynced)

	// No relation was deleted, so the counter must not have moved.
	assert.EqualValues(t, 0, songByID(t, db, song.ID).LikeCount)
}

func TestReplayLikes_CounterMatchesRelations(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	one := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	two := seedSong(t, db, artist.ID, "two", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	// Interleaved likes, duplicates and unlikes from two users.
	sequences := []struct {
		user  models.User
		batch models.ActionBatch
	}{
		{alice, models.ActionBatch{Likes: []models.LikeAction{
			{SongID: one.ID, Action: models.ActionLike},
			{SongID: two.ID, Action: models.ActionLike},
			{SongID: one.ID, Action: models.ActionLike},
		}}},
		{bob, models.ActionBatch{Likes: []models.LikeAction{
			{SongID: one.ID, Action: models.ActionLike},
			{SongID: one.ID, Action: models.ActionUnlike},
			{SongID: two.ID, Action: models.ActionLike},
		}}},
		{alice, models.ActionBatch{Likes: []models.LikeAction{
			{SongID: two.ID, Action: models.ActionUnlike},
			{SongID: two.ID, Action: models.ActionUnlike},
		}}},
	}
	for _, seq := range sequences {
		_, err := replayer.ReplayActions(context.Background(), asUser(seq.user), seq.batch)
		require.NoError(t, err)
	}

	for _, songID := range []uint{one.ID, two.ID} {
		relations := countRows(t, db, &models.Like{}, "target_kind = ? AND target_id = ?", models.LikeTargetSong, songID)
		assert.EqualValues(t, relations, songByID(t, db, songID).LikeCount,
			"song %d: like_count must equal extant like relations", songID)
	}
}

func TestReplayFollows_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	owner := seedUser(t, db, "owner")
	artist := seedArtist(t, db, owner.ID, "The Owners")
	replayer := sync.NewReplayer(db, zap.NewNop())

	follow := models.ActionBatch{Follows: []models.FollowAction{{ArtistID: artist.ID, Action: models.ActionFollow}}}
	res, err := replayer.ReplayActions(context.Background(), asUser(user), follow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FollowsSynced)

	// Follows point at the artist's owning user id, not the artist row.
	assert.EqualValues(t, 1, countRows(t, db, &models.Follow{}, "follower_id = ? AND following_id = ?", user.ID, owner.ID))

	unfollow := models.ActionBatch{Follows: []models.FollowAction{{ArtistID: artist.ID, Action: models.ActionUnfollow}}}
	res, err = replayer.ReplayActions(context.Background(), asUser(user), unfollow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FollowsSynced)

	assert.EqualValues(t, 0, countRows(t, db, &models.Follow{}, "follower_id = ?", user.ID))
}

func TestReplayFollows_ArtistWithoutOwner(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	orphan := seedArtist(t, db, 0, "Orphan")
	replayer := sync.NewReplayer(db, zap.NewNop())

	batch := models.ActionBatch{Follows: []models.FollowAction{
		{ArtistID: orphan.ID, Action: models.ActionFollow},
		{ArtistID: 4242, Action: models.ActionFollow},
	}}
	res, err := replayer.ReplayActions(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, res.FollowsSynced)
	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.Equal(t, "follow", e.Type)
		assert.Equal(t, "artist not found or has no associated user", e.Error)
	}
}

func TestReplayActions_UnknownActionIsolated(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ada")
	artist := seedArtist(t, db, seedUser(t, db, "owner").ID, "The Owners")
	song := seedSong(t, db, artist.ID, "one", models.SongApproved, time.Now().UTC())
	replayer := sync.NewReplayer(db, zap.NewNop())

	batch := models.ActionBatch{Likes: []models.LikeAction{
		{SongID: song.ID, Action: "love"},
		{SongID: song.ID, Action: models.ActionLike},
	}}
	res, err := replayer.ReplayActions(context.Background(), asUser(user), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LikesSynced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "unknown action", res.Errors[0].Error)
}

// A driver-level failure is infrastructure, not a per-item business
// error: the batch aborts and the error propagates.
func TestReplayPlays_StorageFailureAborts(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	replayer := sync.NewReplayer(db, zap.NewNop())
	_, err = replayer.ReplayPlays(context.Background(),
		asUserID(7),
		[]models.PlayItem{{SongID: 1, PlayedAt: "2025-06-01T09:00:00Z"}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
