package lsdups

import (
	"strings"

	"github.com/opencontainers/go-digest"
)

// Stage contexts recorded against candidates held in a candidateSet
const (
	FullContext  = "full"
	GroupContext = "group"
)

// Hash type constants
const (
	HashTypeSHA256 uint16 = 1 // SHA-256 (32 bytes)
	HashTypeSHA384 uint16 = 2 // SHA-384 (48 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// Hash size constants
const (
	HashSizeSHA256 = 32
	HashSizeSHA384 = 48
	HashSizeSHA512 = 64
)

// Defaults used when no settings file is present
const (
	DefaultHashAlgorithm = "sha256"
	DefaultPartialSize   = "4K"
	DefaultHashWorkers   = 4
	DefaultHashBuffer    = "2M"
	DefaultOutputFormat  = "human"
	DefaultColorMode     = "auto"
	DefaultVerifyMode    = VerifyNone
)

// Verification policies applied after full-digest grouping
const (
	VerifyNone = "none" // full digest equality is authoritative
	VerifyMmap = "mmap" // byte-for-byte comparison against the group representative
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA384:
		return "sha384"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha256":
		return HashTypeSHA256, true
	case "sha384":
		return HashTypeSHA384, true
	case "sha512":
		return HashTypeSHA512, true
	default:
		return 0, false
	}
}

// digestAlgorithm maps a hash type onto its go-digest algorithm
func digestAlgorithm(hashType uint16) digest.Algorithm {
	switch hashType {
	case HashTypeSHA384:
		return digest.SHA384
	case HashTypeSHA512:
		return digest.SHA512
	default:
		return digest.SHA256
	}
}
