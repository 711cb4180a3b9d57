package pack

import (
	"crypto/sha1" //nolint:gosec // Upstream metadata publishes SHA-1 digests.
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"
)

// ChecksumAlgo names a supported digest algorithm.
type ChecksumAlgo string

// Supported digest algorithms. Upstream services publish SHA-1 for game
// libraries and SHA-256 or SHA-512 for runtime archives and pack files.
const (
	AlgoSHA1   ChecksumAlgo = "sha1"
	AlgoSHA256 ChecksumAlgo = "sha256"
	AlgoSHA512 ChecksumAlgo = "sha512"
)

// hexLengths maps each algorithm to the expected digest length in hex characters.
var hexLengths = map[ChecksumAlgo]int{
	AlgoSHA1:   40,
	AlgoSHA256: 64,
	AlgoSHA512: 128,
}

var (
	// errChecksumFormat is returned when a checksum string is not "algo:hex".
	errChecksumFormat = errors.New("checksum must look like algo:hex")
	// errChecksumAlgo is returned for unsupported digest algorithms.
	errChecksumAlgo = errors.New("unsupported checksum algorithm")
	// errChecksumHex is returned when the digest length does not match the algorithm.
	errChecksumHex = errors.New("digest length does not match algorithm")
)

// Checksum is an expected content digest.
type Checksum struct {
	// Algo is the digest algorithm.
	Algo ChecksumAlgo
	// Hex is the lowercase hex digest.
	Hex string
}

// NewChecksum builds a checksum from an algorithm and hex digest,
// normalizing the digest to lowercase.
func NewChecksum(algo ChecksumAlgo, hexDigest string) (Checksum, error) {
	c := Checksum{
		Algo: algo,
		Hex:  strings.ToLower(strings.TrimSpace(hexDigest)),
	}

	if err := c.Validate(); err != nil {
		return Checksum{}, err
	}

	return c, nil
}

// ParseChecksum parses the "algo:hex" form used in manifests and sidecar files.
func ParseChecksum(s string) (Checksum, error) {
	algo, hexDigest, ok := strings.Cut(s, ":")
	if !ok {
		return Checksum{}, fmt.Errorf("%w: %q", errChecksumFormat, s)
	}

	return NewChecksum(ChecksumAlgo(strings.ToLower(algo)), hexDigest)
}

// Validate checks the algorithm is supported and the digest has the right length.
func (c Checksum) Validate() error {
	want, ok := hexLengths[c.Algo]
	if !ok {
		return fmt.Errorf("%w: %q", errChecksumAlgo, c.Algo)
	}

	if len(c.Hex) != want {
		return fmt.Errorf("%w: %s wants %d hex chars, got %d", errChecksumHex, c.Algo, want, len(c.Hex))
	}

	for _, r := range c.Hex {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return fmt.Errorf("%w: %q is not lowercase hex", errChecksumHex, c.Hex)
		}
	}

	return nil
}

// IsZero reports whether no checksum was provided.
func (c Checksum) IsZero() bool {
	return c.Algo == "" && c.Hex == ""
}

// Matches reports whether a computed hex digest equals the expected one,
// ignoring case.
func (c Checksum) Matches(hexDigest string) bool {
	return strings.EqualFold(c.Hex, hexDigest)
}

// String renders the "algo:hex" form.
func (c Checksum) String() string {
	return string(c.Algo) + ":" + c.Hex
}

// HashReader consumes r and returns its hex digest under the algorithm.
func HashReader(r io.Reader, algo ChecksumAlgo) (string, error) {
	hasher, err := Checksum{Algo: algo}.NewHash()
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// NewHash returns a fresh hash.Hash for the checksum's algorithm.
func (c Checksum) NewHash() (hash.Hash, error) {
	switch c.Algo {
	case AlgoSHA1:
		return sha1.New(), nil //nolint:gosec // Upstream metadata publishes SHA-1 digests.
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errChecksumAlgo, c.Algo)
	}
}
