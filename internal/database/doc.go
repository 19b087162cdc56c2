// Package database provides the SQLite store for download credentials.
//
// It holds one table, credentials, with a row per secret (cookie jar or
// similar) grouped by class. Revoking a row clears its payload so that a
// rejected secret does not linger on disk.
//
// The database uses WAL mode so the credctl admin tool can write while the
// server is running, and initializes its schema automatically.
package database
