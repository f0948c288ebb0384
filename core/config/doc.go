// Package config loads the application configuration.
//
// Configuration is composed from partial Config structs owned by the
// packages they configure (server, database, storage, logger, sync).
// Defaults come from 'default' struct tags, discovered by reflection, and
// every key can be overridden through environment variables (SERVER_PORT,
// SYNC_LOOKBACK_DAYS, ...) or a local .env file.
package config
