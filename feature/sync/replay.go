package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tunesync/core/middleware/identity"
	"tunesync/feature/sync/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Business failures that stay inside a single batch item. Anything else
// coming out of the storage layer is treated as an infrastructure failure
// and aborts the remainder of the batch.
var (
	ErrSongNotFound      = errors.New("song not found")
	ErrArtistUnavailable = errors.New("artist not found or has no associated user")
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
)

// Replayer applies client-recorded offline actions against server state.
//
// Items are processed in client-submitted order, each inside its own
// guarded transaction: a failed or timed-out batch never rolls back items
// that already committed, and the client's retry of the remainder is safe
// because every item is idempotent under its database-level unique key.
type Replayer struct {
	guard  *Guard
	logger *zap.Logger
}

// NewReplayer creates a replay engine over the given connection.
func NewReplayer(db *gorm.DB, logger *zap.Logger) *Replayer {
	return &Replayer{guard: NewGuard(db), logger: logger}
}

// ReplayPlays applies a batch of offline play events. A play that already
// exists under its (user, song, played_at) key counts as synced, not as an
// error: the client is most likely retrying a submission whose response
// it lost.
func (r *Replayer) ReplayPlays(ctx context.Context, user identity.UserContext, items []models.PlayItem) (*models.PlayReplayResult, error) {
	res := &models.PlayReplayResult{Total: len(items), Errors: []models.ReplayError{}}

	for _, it := range items {
		playedAt, err := time.Parse(time.RFC3339, it.PlayedAt)
		if err != nil {
			res.Errors = append(res.Errors, models.ReplayError{SongID: it.SongID, Error: ErrInvalidTimestamp.Error()})
			continue
		}

		if err := r.applyPlay(ctx, user.UserID, it, playedAt); err != nil {
			if isItemError(err) {
				res.Errors = append(res.Errors, models.ReplayError{SongID: it.SongID, Error: err.Error()})
				continue
			}
			return nil, fmt.Errorf("replay play for song %d: %w", it.SongID, err)
		}
		res.Synced++
	}

	r.logger.Info("Play history replayed",
		zap.Uint("user_id", user.UserID),
		zap.Int("synced", res.Synced),
		zap.Int("total", res.Total),
		zap.Int("failed", len(res.Errors)),
	)
	return res, nil
}

// ReplayActions applies like/unlike and follow/unfollow batches.
func (r *Replayer) ReplayActions(ctx context.Context, user identity.UserContext, batch models.ActionBatch) (*models.ActionReplayResult, error) {
	res := &models.ActionReplayResult{Errors: []models.ReplayError{}}

	for _, a := range batch.Likes {
		if err := r.applyLike(ctx, user.UserID, a); err != nil {
			if isItemError(err) {
				res.Errors = append(res.Errors, models.ReplayError{Type: "like", SongID: a.SongID, Error: err.Error()})
				continue
			}
			return nil, fmt.Errorf("replay %s for song %d: %w", a.Action, a.SongID, err)
		}
		res.LikesSynced++
	}

	for _, a := range batch.Follows {
		if err := r.applyFollow(ctx, user.UserID, a); err != nil {
			if isItemError(err) {
				res.Errors = append(res.Errors, models.ReplayError{Type: "follow", ArtistID: a.ArtistID, Error: err.Error()})
				continue
			}
			return nil, fmt.Errorf("replay %s for artist %d: %w", a.Action, a.ArtistID, err)
		}
		res.FollowsSynced++
	}

	r.logger.Info("User actions replayed",
		zap.Uint("user_id", user.UserID),
		zap.Int("likes_synced", res.LikesSynced),
		zap.Int("follows_synced", res.FollowsSynced),
		zap.Int("failed", len(res.Errors)),
	)
	return res, nil
}

// applyPlay inserts the play under its idempotency key and pairs the
// play_count increment with the actual insert. The insert-or-ignore rides
// on the unique index, so two devices replaying the same batch cannot
// both pass an existence check and double-insert.
func (r *Replayer) applyPlay(ctx context.Context, userID uint, it models.PlayItem, playedAt time.Time) error {
	_, err := r.guard.Apply(ctx,
		func(tx *gorm.DB) (bool, error) {
			if err := songExists(tx, it.SongID); err != nil {
				return false, err
			}
			entry := models.PlayHistory{
				UserID:         userID,
				SongID:         it.SongID,
				PlayedAt:       playedAt,
				DurationPlayed: it.DurationPlayed,
				Completed:      it.Completed,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
			if res.Error != nil {
				return false, res.Error
			}
			return res.RowsAffected == 1, nil
		},
		func(tx *gorm.DB) error {
			return tx.Model(&models.Song{}).
				Where("id = ?", it.SongID).
				UpdateColumn("play_count", gorm.Expr("play_count + ?", 1)).Error
		},
	)
	return err
}

// applyLike creates or deletes the like relation and moves like_count
// only when the relation actually changed state.
func (r *Replayer) applyLike(ctx context.Context, userID uint, a models.LikeAction) error {
	switch a.Action {
	case models.ActionLike:
		_, err := r.guard.Apply(ctx,
			func(tx *gorm.DB) (bool, error) {
				if err := songExists(tx, a.SongID); err != nil {
					return false, err
				}
				like := models.Like{
					UserID:     userID,
					TargetKind: models.LikeTargetSong,
					TargetID:   a.SongID,
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
				if res.Error != nil {
					return false, res.Error
				}
				return res.RowsAffected == 1, nil
			},
			func(tx *gorm.DB) error {
				return tx.Model(&models.Song{}).
					Where("id = ?", a.SongID).
					UpdateColumn("like_count", gorm.Expr("like_count + ?", 1)).Error
			},
		)
		return err

	case models.ActionUnlike:
		_, err := r.guard.Apply(ctx,
			func(tx *gorm.DB) (bool, error) {
				if err := songExists(tx, a.SongID); err != nil {
					return false, err
				}
				res := tx.Where("user_id = ? AND target_kind = ? AND target_id = ?",
					userID, models.LikeTargetSong, a.SongID).
					Delete(&models.Like{})
				if res.Error != nil {
					return false, res.Error
				}
				return res.RowsAffected > 0, nil
			},
			func(tx *gorm.DB) error {
				return tx.Model(&models.Song{}).
					Where("id = ?", a.SongID).
					UpdateColumn("like_count", gorm.Expr("like_count - ?", 1)).Error
			},
		)
		return err

	default:
		return ErrUnknownAction
	}
}

// applyFollow resolves the artist's owning user and creates or deletes
// the follow relation. Follows carry no paired counter.
func (r *Replayer) applyFollow(ctx context.Context, userID uint, a models.FollowAction) error {
	switch a.Action {
	case models.ActionFollow:
		_, err := r.guard.Apply(ctx,
			func(tx *gorm.DB) (bool, error) {
				owner, err := resolveArtistOwner(tx, a.ArtistID)
				if err != nil {
					return false, err
				}
				follow := models.Follow{FollowerID: userID, FollowingID: owner}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
				if res.Error != nil {
					return false, res.Error
				}
				return res.RowsAffected == 1, nil
			},
			nil,
		)
		return err

	case models.ActionUnfollow:
		_, err := r.guard.Apply(ctx,
			func(tx *gorm.DB) (bool, error) {
				owner, err := resolveArtistOwner(tx, a.ArtistID)
				if err != nil {
					return false, err
				}
				res := tx.Where("follower_id = ? AND following_id = ?", userID, owner).
					Delete(&models.Follow{})
				if res.Error != nil {
					return false, res.Error
				}
				return res.RowsAffected > 0, nil
			},
			nil,
		)
		return err

	default:
		return ErrUnknownAction
	}
}

// resolveArtistOwner maps an artist row to its owning user id. Follow
// relations are stored against that user id, not the artist id.
func resolveArtistOwner(tx *gorm.DB, artistID uint) (uint, error) {
	var artist models.Artist
	err := tx.Select("id", "user_id").Where("id = ?", artistID).Take(&artist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrArtistUnavailable
	}
	if err != nil {
		return 0, err
	}
	if artist.UserID == 0 {
		return 0, ErrArtistUnavailable
	}
	return artist.UserID, nil
}

func songExists(tx *gorm.DB, id uint) error {
	var song models.Song
	err := tx.Select("id").Where("id = ?", id).Take(&song).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSongNotFound
	}
	return err
}

func isItemError(err error) bool {
	return errors.Is(err, ErrSongNotFound) ||
		errors.Is(err, ErrArtistUnavailable) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidTimestamp)
}
