package model

import (
	"encoding/base32"
	"encoding/hex"
	"strings"
)

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// AutoID derives the caller-omitted item id from the full content hash:
// "%" followed by 6-8 base-32 characters. A true hash collision within a
// collection is astronomically unlikely at this length and is handled the
// same way any other id collision is: the content-hash dedup path in
// Engine.Put treats matching content under the same id as a no-op.
func AutoID(contentHashFull string) string {
	prefix := contentHashFull
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	raw, err := hex.DecodeString(prefix)
	if err != nil || len(raw) == 0 {
		return "%" + contentHashFull[:8]
	}
	encoded := strings.ToLower(base32Encoding.EncodeToString(raw))
	if len(encoded) > 8 {
		encoded = encoded[:8]
	}
	return "%" + encoded
}
