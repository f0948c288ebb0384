package sync

import (
	"fmt"
	"strings"
	"time"

	"tunesync/core/logger"
	"tunesync/core/middleware/identity"
	"tunesync/feature/sync/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/changes", h.HandleIncrementalSync)
	group.Get("/full", h.HandleFullSync)
	group.Post("/history", h.HandleReplayPlayHistory)
	group.Post("/actions", h.HandleReplayUserActions)
}

// HandleIncrementalSync returns per-kind changesets newer than the client's cursor.
// @Summary Incremental Sync
// @Description Get bounded changesets for the requested entity kinds since last_sync_at.
// @Tags sync
// @Produce json
// @Param last_sync_at query string false "Client cursor (RFC3339)"
// @Param include query string false "Comma-separated entity kinds (downloads,playlists,favorites,play_history,follows,songs)"
// @Success 200 {object} models.SyncResponse "Changesets"
// @Failure 400 {object} map[string]string "Unknown include kind"
// @Router /sync/changes [get]
func (h *Handler) HandleIncrementalSync(c *fiber.Ctx) error {
	user, ok := identity.FromContext(c)
	if !ok {
		return unauthenticated(c)
	}
	l := logger.WithRayID(h.service.logger, c)

	include := AllKinds
	if raw := c.Query("include"); raw != "" {
		include = strings.Split(raw, ",")
		for _, kind := range include {
			if !IsValidKind(kind) {
				return badRequest(c, fmt.Sprintf("unknown include kind %q", kind))
			}
		}
	}

	resp, err := h.service.IncrementalSync(c.Context(), user, c.Query("last_sync_at"), include)
	if err != nil {
		l.Error("Incremental sync failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(resp)
}

// HandleFullSync returns the bounded full library plus account summary and statistics.
// @Summary Full Sync
// @Description Bootstrap sync for first install / reinstall.
// @Tags sync
// @Produce json
// @Success 200 {object} models.SyncResponse "Full library"
// @Router /sync/full [get]
func (h *Handler) HandleFullSync(c *fiber.Ctx) error {
	user, ok := identity.FromContext(c)
	if !ok {
		return unauthenticated(c)
	}
	l := logger.WithRayID(h.service.logger, c)

	resp, err := h.service.FullSync(c.Context(), user)
	if err != nil {
		l.Error("Full sync failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(resp)
}

// HandleReplayPlayHistory replays a batch of offline play events.
// @Summary Replay Play History
// @Description Apply up to 100 offline play events idempotently.
// @Tags sync
// @Accept json
// @Produce json
// @Param batch body models.PlayBatch true "Play events"
// @Success 200 {object} models.PlayReplayResult "Per-item results"
// @Failure 400 {object} map[string]string "Shape violation"
// @Router /sync/history [post]
func (h *Handler) HandleReplayPlayHistory(c *fiber.Ctx) error {
	user, ok := identity.FromContext(c)
	if !ok {
		return unauthenticated(c)
	}
	l := logger.WithRayID(h.service.logger, c)

	var batch models.PlayBatch
	if err := c.BodyParser(&batch); err != nil {
		return badRequest(c, "malformed payload")
	}
	if msg := h.validatePlayBatch(batch); msg != "" {
		return badRequest(c, msg)
	}

	res, err := h.service.ReplayPlayHistory(c.Context(), user, batch)
	if err != nil {
		l.Error("Play history replay failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(res)
}

// HandleReplayUserActions replays like/unlike and follow/unfollow batches.
// @Summary Replay User Actions
// @Description Apply offline like and follow actions idempotently.
// @Tags sync
// @Accept json
// @Produce json
// @Param batch body models.ActionBatch true "Like and follow actions"
// @Success 200 {object} models.ActionReplayResult "Per-item results"
// @Failure 400 {object} map[string]string "Shape violation"
// @Router /sync/actions [post]
func (h *Handler) HandleReplayUserActions(c *fiber.Ctx) error {
	user, ok := identity.FromContext(c)
	if !ok {
		return unauthenticated(c)
	}
	l := logger.WithRayID(h.service.logger, c)

	var batch models.ActionBatch
	if err := c.BodyParser(&batch); err != nil {
		return badRequest(c, "malformed payload")
	}
	if msg := h.validateActionBatch(batch); msg != "" {
		return badRequest(c, msg)
	}

	res, err := h.service.ReplayUserActions(c.Context(), user, batch)
	if err != nil {
		l.Error("Action replay failed", zap.Error(err))
		return internalError(c, err)
	}
	return c.JSON(res)
}

// validatePlayBatch enforces request shape before any processing: batch
// ceiling and parseable timestamps. Song existence is checked per item
// during replay so one bad id cannot reject valid work.
func (h *Handler) validatePlayBatch(batch models.PlayBatch) string {
	maxBatch := h.service.cfg.MaxBatchSize
	if len(batch.Plays) == 0 {
		return "empty batch"
	}
	if len(batch.Plays) > maxBatch {
		return fmt.Sprintf("batch exceeds %d items", maxBatch)
	}
	for _, p := range batch.Plays {
		if p.SongID == 0 {
			return "missing song_id"
		}
		if _, err := time.Parse(time.RFC3339, p.PlayedAt); err != nil {
			return fmt.Sprintf("invalid played_at %q", p.PlayedAt)
		}
	}
	return ""
}

func (h *Handler) validateActionBatch(batch models.ActionBatch) string {
	maxBatch := h.service.cfg.MaxBatchSize
	if len(batch.Likes)+len(batch.Follows) == 0 {
		return "empty batch"
	}
	if len(batch.Likes) > maxBatch || len(batch.Follows) > maxBatch {
		return fmt.Sprintf("batch exceeds %d items", maxBatch)
	}
	for _, a := range batch.Likes {
		if a.SongID == 0 {
			return "missing song_id"
		}
		if a.Action != models.ActionLike && a.Action != models.ActionUnlike {
			return fmt.Sprintf("invalid like action %q", a.Action)
		}
		if msg := validTimestamp(a.Timestamp); msg != "" {
			return msg
		}
	}
	for _, a := range batch.Follows {
		if a.ArtistID == 0 {
			return "missing artist_id"
		}
		if a.Action != models.ActionFollow && a.Action != models.ActionUnfollow {
			return fmt.Sprintf("invalid follow action %q", a.Action)
		}
		if msg := validTimestamp(a.Timestamp); msg != "" {
			return msg
		}
	}
	return ""
}

// validTimestamp accepts an absent action timestamp; the relations carry
// server time, the client stamp is advisory.
func validTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(time.RFC3339, raw); err != nil {
		return fmt.Sprintf("invalid timestamp %q", raw)
	}
	return ""
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user identity"})
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
