//go:build cgo && sqlite3_cgo

package db

import (
	_ "github.com/mattn/go-sqlite3"
)

// Selected with -tags sqlite3_cgo on hosts where the wasm build is too slow
// for large journals.
const (
	driverID   = "mattn/go-sqlite3"
	driverName = "sqlite3"
)
