package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Fingerprint returns a short content hash of a bundle's inputs. It is
// deliberately timestamp-free: two bundles with identical features must map to
// the same cache key even when they arrive on different ticks. Time sensitivity
// is handled separately by the cache's coarse time bucket.
func (b FeatureBundle) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(b.Domain))

	keys := make([]string, 0, len(b.Features))
	for k := range b.Features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf [8]byte
	for _, k := range keys {
		h.Write([]byte(k))
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(b.Features[k]))
		h.Write(buf[:])
	}

	for _, c := range b.Competencies {
		h.Write([]byte(c.ID))
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(c.Level))
		h.Write(buf[:])
	}
	for _, e := range b.Events {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(e.Score))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(e.Difficulty))
		h.Write(buf[:])
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:12])
}
