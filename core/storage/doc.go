// Package storage wraps the external audio object store (S3/MinIO).
//
// The sync engine never writes objects; uploads and URL issuing for new
// downloads belong to the catalog subsystem. This package exposes the two
// operations sync consumes through the Client interface: a bucket
// existence check performed at startup and presigned GET URLs attached to
// download changesets so an offline client can refresh an expired link.
//
// The mocks subpackage provides a testify mock of Client for tests.
package storage
