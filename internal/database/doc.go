// Package database provides the PostgreSQL connection pool used by the
// transcript writer.
package database
