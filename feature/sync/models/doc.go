// Package models defines the persistence entities and wire payloads of the
// sync feature.
//
// Persistence entities (models.go) are GORM models. The relations that
// back client-visible state (Like, Follow, PlayHistory) carry unique
// indexes over their idempotency keys; replay correctness depends on
// those indexes existing, so run the migrate command before serving.
//
// Wire payloads (payload.go) are the request and response shapes of the
// four sync endpoints. The SyncResponse envelope uses pointer-valued
// collection fields: a kind the client asked for is always present (empty
// array included), a kind it did not ask for is omitted.
package models
