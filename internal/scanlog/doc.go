// Package scanlog records scan runs in a SQLite database (modernc.org/sqlite,
// no cgo) and holds the persistent marker that a full scan has completed at
// least once, which gates incremental and refresh scans.
package scanlog
