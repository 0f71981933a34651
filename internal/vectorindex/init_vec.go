//go:build sqlite_vec && cgo

package vectorindex

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// driverName selects mattn/go-sqlite3, the only driver sqlite-vec-go-bindings
// knows how to auto-load its extension into.
const driverName = "sqlite3"

func init() {
	vec.Auto()
}
