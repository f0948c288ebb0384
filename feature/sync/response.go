package sync

import (
	"time"

	"tunesync/feature/sync/models"
)

// ResponseBuilder assembles the response envelope. The sync_timestamp it
// stamps is the new cursor the client should store once it has durably
// applied the changeset; the builder itself never mutates state.
type ResponseBuilder struct {
	now func() time.Time
}

// NewResponseBuilder creates a builder using the given clock.
func NewResponseBuilder(now func() time.Time) *ResponseBuilder {
	if now == nil {
		now = time.Now
	}
	return &ResponseBuilder{now: now}
}

// Incremental starts an envelope echoing the cursor the changeset was
// assembled from.
func (b *ResponseBuilder) Incremental(lastSyncAt time.Time) *models.SyncResponse {
	return &models.SyncResponse{
		SyncTimestamp: b.now().UTC(),
		LastSyncAt:    &lastSyncAt,
	}
}

// Full starts a full-sync envelope.
func (b *ResponseBuilder) Full() *models.SyncResponse {
	return &models.SyncResponse{
		SyncTimestamp: b.now().UTC(),
		SyncType:      "full",
	}
}
