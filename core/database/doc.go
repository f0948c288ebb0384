// Package database handles database connections for the sync engine.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly
// configure MySQL connections based on the application's configuration. An
// in-memory sqlite driver is supported for tests and local development.
//
// # Connect
//
// The generic Connect function establishes a connection to the database. The
// MySQL path applies connection-pool limits and per-call I/O timeouts to the
// DSN and verifies the connection with a bounded ping.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
package database
