package filter

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/huichen/murmur"
	"github.com/zeebo/xxh3"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// HashFunc maps a word to a non-negative integer. The filter reduces it
// modulo the bit-array length to obtain a bit index.
type HashFunc func(word string) uint64

var algorithms = map[string]HashFunc{
	"MD5":     digestHash(func(b []byte) []byte { s := md5.Sum(b); return s[:] }),
	"SHA1":    digestHash(func(b []byte) []byte { s := sha1.Sum(b); return s[:] }),
	"SHA256":  digestHash(func(b []byte) []byte { s := sha256.Sum256(b); return s[:] }),
	"XXH3":    xxh3.HashString,
	"XXH64":   xxhash.Sum64String,
	"MURMUR3": func(word string) uint64 { return uint64(murmur.Murmur3([]byte(word))) },
}

// digestHash adapts a cryptographic digest. The trailing four bytes are
// read as a signed big-endian integer and its absolute value is used, so
// word lists built with the same digest names index identical bits.
func digestHash(sum func([]byte) []byte) HashFunc {
	return func(word string) uint64 {
		d := sum([]byte(word))
		v := int64(int32(binary.BigEndian.Uint32(d[len(d)-4:])))
		if v < 0 {
			v = -v
		}
		return uint64(v)
	}
}

// aliases map alternative spellings onto the canonical algorithm name.
var aliases = map[string]string{
	"SHA-1":   "SHA1",
	"SHA-256": "SHA256",
}

// Canonical resolves name, ignoring case and aliases, to the name the
// algorithm is registered under.
func Canonical(name string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	if _, ok := algorithms[key]; !ok {
		return "", apperrors.Newf(apperrors.ErrUnknownHashAlgorithm, "%q (supported: %s)",
			name, strings.Join(Supported(), ", "))
	}
	return key, nil
}

// Lookup resolves an algorithm name, ignoring case.
func Lookup(name string) (HashFunc, error) {
	key, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	return algorithms[key], nil
}

// CheckAlgorithms verifies that every name is known and that no algorithm
// is named twice, under any spelling. A repeated hash sets the same bits
// as its first use and adds nothing to the filter.
func CheckAlgorithms(names ...string) error {
	if len(names) == 0 {
		return apperrors.New(apperrors.ErrUnknownHashAlgorithm, "no hash algorithms given")
	}
	seen := make(map[string]string, len(names))
	for _, name := range names {
		key, err := Canonical(name)
		if err != nil {
			return err
		}
		if prev, ok := seen[key]; ok {
			return apperrors.Newf(apperrors.ErrDuplicateHashAlgorithm, "%q and %q both select %s", prev, name, key)
		}
		seen[key] = name
	}
	return nil
}

// Supported lists the recognised algorithm names in sorted order.
func Supported() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
