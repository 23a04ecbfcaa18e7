// Package cachekey derives file-system-safe cache file names from URIs.
package cachekey

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// MaxLength is the longest file name Encode will produce. It stays well
// under common file-system limits (255 bytes) while leaving room for the
// cache directory prefix.
const MaxLength = 200

var separators = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// Encode maps a URI to a deterministic file name no longer than MaxLength.
// Path separators and the scheme colon are substituted with underscores.
// Names that would exceed MaxLength keep a prefix and a suffix of the
// substituted URI joined by a hex SHA-1 of the whole substituted string,
// so two long URIs that agree on their ends still get distinct names.
//
// Truncation makes collisions possible in principle: two overlength URIs
// collide only if their digests collide, and two short URIs never do.
func Encode(uri string) string {
	name := separators.Replace(uri)
	if len(name) <= MaxLength {
		return name
	}

	sum := sha1.Sum([]byte(name))
	mid := "-" + hex.EncodeToString(sum[:]) + "-"

	half := (MaxLength-len(mid))/2 - 1
	return name[:half] + mid + name[len(name)-half:]
}
