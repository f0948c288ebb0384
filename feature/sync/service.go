package sync

import (
	"context"
	"fmt"
	"time"

	"tunesync/core/middleware/identity"
	"tunesync/core/storage"
	"tunesync/feature/sync/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entity kinds a client may request in an incremental sync.
const (
	KindDownloads   = "downloads"
	KindPlaylists   = "playlists"
	KindFavorites   = "favorites"
	KindPlayHistory = "play_history"
	KindFollows     = "follows"
	KindSongs       = "songs"
)

// AllKinds lists every include kind, in response order.
var AllKinds = []string{KindDownloads, KindPlaylists, KindFavorites, KindPlayHistory, KindFollows, KindSongs}

// IsValidKind reports whether k is a known include kind.
func IsValidKind(k string) bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Service coordinates sync requests: it resolves the effective cursor and
// dispatches to the changeset assembler or the replay engine. Stateless
// between calls.
type Service struct {
	assembler *Assembler
	replayer  *Replayer
	builder   *ResponseBuilder
	cfg       Config
	logger    *zap.Logger
}

// NewService creates the sync service.
func NewService(db *gorm.DB, store storage.Client, bucket string, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		assembler: NewAssembler(db, store, bucket, cfg, logger),
		replayer:  NewReplayer(db, logger),
		builder:   NewResponseBuilder(time.Now),
		cfg:       cfg,
		logger:    logger,
	}
}

// IncrementalSync assembles changesets for the requested kinds, each
// bounded and strictly newer than the resolved cursor.
func (s *Service) IncrementalSync(ctx context.Context, user identity.UserContext, lastSyncAt string, include []string) (*models.SyncResponse, error) {
	cursor := ResolveCursor(lastSyncAt, time.Now().UTC(), s.cfg.Lookback())
	resp := s.builder.Incremental(cursor)

	for _, kind := range include {
		var err error
		switch kind {
		case KindDownloads:
			var downloads []models.DownloadedSong
			if downloads, err = s.assembler.Downloads(ctx, user.UserID, cursor, 0); err == nil {
				resp.DownloadedSongs = &downloads
			}
		case KindPlaylists:
			var playlists []models.PlaylistChange
			if playlists, err = s.assembler.Playlists(ctx, user.UserID, cursor); err == nil {
				resp.Playlists = &playlists
			}
		case KindFavorites:
			var liked []uint
			if liked, err = s.assembler.LikedSongIDs(ctx, user.UserID, cursor); err == nil {
				resp.LikedSongs = &liked
			}
		case KindPlayHistory:
			var history []models.PlayHistoryItem
			if history, err = s.assembler.History(ctx, user.UserID, cursor, s.cfg.HistoryLimit); err == nil {
				resp.PlayHistory = &history
			}
		case KindFollows:
			var follows []uint
			if follows, err = s.assembler.FollowedUserIDs(ctx, user.UserID, cursor); err == nil {
				resp.Following = &follows
			}
		case KindSongs:
			var songs []models.SongSummary
			if songs, err = s.assembler.NewSongs(ctx, user.UserID, cursor, s.cfg.NewSongsLimit); err == nil {
				resp.NewSongs = &songs
			}
		default:
			return nil, fmt.Errorf("unknown include kind %q", kind)
		}
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", kind, err)
		}
	}

	return resp, nil
}

// FullSync ignores the cursor and returns bounded recent windows for
// every kind plus account summary and aggregate statistics. Used for
// first-install and reinstall bootstrapping.
func (s *Service) FullSync(ctx context.Context, user identity.UserContext) (*models.SyncResponse, error) {
	resp := s.builder.Full()

	// The full library listing still uses the window for the capped,
	// time-ordered kinds; zero time means "everything" for the set kinds.
	var begin time.Time
	window := time.Now().UTC().Add(-s.cfg.Lookback())

	summary, err := s.assembler.Summary(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	resp.UserSummary = summary

	downloads, err := s.assembler.Downloads(ctx, user.UserID, begin, s.cfg.FullDownloadsLimit)
	if err != nil {
		return nil, err
	}
	resp.DownloadedSongs = &downloads

	playlists, err := s.assembler.Playlists(ctx, user.UserID, begin)
	if err != nil {
		return nil, err
	}
	resp.Playlists = &playlists

	liked, err := s.assembler.LikedSongIDs(ctx, user.UserID, begin)
	if err != nil {
		return nil, err
	}
	resp.LikedSongs = &liked

	history, err := s.assembler.History(ctx, user.UserID, window, s.cfg.FullHistoryLimit)
	if err != nil {
		return nil, err
	}
	resp.PlayHistory = &history

	follows, err := s.assembler.FollowedUserIDs(ctx, user.UserID, begin)
	if err != nil {
		return nil, err
	}
	resp.Following = &follows

	stats, err := s.assembler.Statistics(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	resp.Statistics = stats

	return resp, nil
}

// ReplayPlayHistory applies a play-event batch.
func (s *Service) ReplayPlayHistory(ctx context.Context, user identity.UserContext, batch models.PlayBatch) (*models.PlayReplayResult, error) {
	return s.replayer.ReplayPlays(ctx, user, batch.Plays)
}

// ReplayUserActions applies a like/follow batch.
func (s *Service) ReplayUserActions(ctx context.Context, user identity.UserContext, batch models.ActionBatch) (*models.ActionReplayResult, error) {
	return s.replayer.ReplayActions(ctx, user, batch)
}
