// Package history keeps a record of past runs in SQLite.
//
// Each run stores its verdict summary and every result row. The most
// recent run of a collection is used to detect recoveries when deciding
// whether to notify.
package history
