//go:build !(sqlite_vec && cgo)

package vectorindex

import (
	_ "modernc.org/sqlite"
)

// driverName is the pure-Go default: no cgo, no real sqlite-vec extension.
// Queries fall back to the brute-force cosine scan (queryBruteForce in query.go).
const driverName = "sqlite"
