// Package server holds the HTTP server portion of the application configuration:
// the listen port, the API key protecting the sync endpoints, and the
// request-level timeout that bounds every sync call.
package server
