//go:build !(cgo && sqlite3_cgo)

package db

import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// The default driver needs no C toolchain, so release builds stay static.
const (
	driverID   = "ncruces/go-sqlite3"
	driverName = "sqlite3"
)
