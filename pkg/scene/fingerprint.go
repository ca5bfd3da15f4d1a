package scene

import (
	"fmt"
	"hash/fnv"
)

// Fingerprint computes a cheap structural hash over the ordered
// (page id, page name) pairs of a document. It changes when pages are
// added, removed, renamed or reordered, and deliberately does not change
// for edits inside an unchanged page set; cache TTL is the backstop for
// those.
func Fingerprint(pages []PageInfo) string {
	h := fnv.New64a()
	for _, p := range pages {
		h.Write([]byte(p.ID))
		h.Write([]byte{0})
		h.Write([]byte(p.Name))
		h.Write([]byte{1})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
