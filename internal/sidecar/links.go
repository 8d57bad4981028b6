package sidecar

import (
	"strings"

	"github.com/sandily/bidskit/internal/bids"
	"github.com/sandily/bidskit/internal/mapping"
)

// ResolveLinks turns the configured linked-series stems into output filenames
// for the unit with the given prefix, using the unit's volume extension ext
// (bids.ImageExt or bids.PlainImageExt). Entries that already name an image are
// left untouched, so resolving a resolved value is a no-op. The result is a
// string or a []string matching the form the operator wrote; ok is false when
// nothing was assigned.
func ResolveLinks(prefix, ext string, links mapping.Links) (any, bool) {
	if !links.Assigned() {
		return nil, false
	}
	if !links.IsList {
		return qualify(prefix, ext, links.Stems[0]), true
	}
	out := make([]string, len(links.Stems))
	for i, stem := range links.Stems {
		out[i] = qualify(prefix, ext, stem)
	}
	return out, true
}

func qualify(prefix, ext, stem string) string {
	if bids.IsVolume(stem) {
		return stem
	}
	if strings.HasPrefix(stem, prefix) {
		return stem + ext
	}
	return prefix + stem + ext
}
