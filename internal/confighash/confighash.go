// Package confighash computes a streaming digest of a configuration
// profile's normalised text, used as the seed for the per-line
// metrics cache filename so a change to page size, fonts or margins
// invalidates every cached line-metrics entry that depended on it
// (spec §4.7), grounded on original_source/hash.c's
// hash_configline/hash_configend (OpenSSL SHA-1 there; crypto/sha1
// here, the standard library's equivalent streaming digest, since no
// example repo in this lineage reaches for a third-party hash package
// for a plain content digest).
package confighash

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"strings"
)

// Hasher accumulates configuration lines into a single running SHA-1
// digest, normalising each line the same way hash_configline's caller
// does: leading space trimmed, trailing CR/LF trimmed.
type Hasher struct {
	h hash.Hash
}

// New creates an empty Hasher.
func New() *Hasher {
	return &Hasher{h: sha1.New()}
}

// AddLine folds one configuration line into the digest after
// normalising it, so the resulting hash is insensitive to which
// physical file an included directive's content came from.
func (c *Hasher) AddLine(line string) {
	normalised := strings.TrimRight(strings.TrimLeft(line, " \t"), "\r\n")
	c.h.Write([]byte(normalised))
}

// Sum returns the final digest as a lowercase hex string
// (hash_configend's %02x-per-byte rendering).
func (c *Hasher) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}

// LineCacheSeed derives the per-line cache key from the configuration
// digest and a line's own content fingerprint, the composition
// hash_line uses (the config hash establishes page geometry and fonts,
// the line fingerprint distinguishes one long line from another under
// that same configuration).
func LineCacheSeed(configDigest, lineFingerprint string) string {
	h := sha1.New()
	h.Write([]byte(configDigest))
	h.Write([]byte(lineFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}
