package fsops

import (
	"path/filepath"
	"strconv"
)

// SlotPath builds the on-disk name for ring slot n under base, e.g.
// base="/backup/host/hourly", n=0 -> "/backup/host/hourly.0". Slot 0 is
// always suffixed explicitly; there is no bare, suffix-less directory.
func SlotPath(base string, n int) string {
	return base + "." + strconv.Itoa(n)
}

// Join cleans and joins path elements, a thin wrapper kept so callers don't
// reach for filepath directly and so its behavior can be adjusted in one
// place if destination paths ever need extra normalization.
func Join(elem ...string) string {
	return filepath.Join(elem...)
}
