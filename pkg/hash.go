package lsdups

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	_ "crypto/sha512" // registers SHA-384 and SHA-512
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/opencontainers/go-digest"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name      string
	TypeID    uint16
	Size      int
	Algorithm digest.Algorithm
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	typeID, ok := HashTypeFromName(name)
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
	return GetHashAlgorithmByType(typeID)
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	var size int
	switch typeID {
	case HashTypeSHA256:
		size = HashSizeSHA256
	case HashTypeSHA384:
		size = HashSizeSHA384
	case HashTypeSHA512:
		size = HashSizeSHA512
	default:
		return nil, fmt.Errorf("unsupported hash type ID: %d", typeID)
	}

	alg := digestAlgorithm(typeID)
	if !alg.Available() {
		return nil, fmt.Errorf("hash algorithm %s is not linked into this binary", alg)
	}

	return &HashAlgorithm{
		Name:      HashTypeName(typeID),
		TypeID:    typeID,
		Size:      size,
		Algorithm: alg,
	}, nil
}

// New returns a fresh hasher for the algorithm
func (a *HashAlgorithm) New() hash.Hash {
	return a.Algorithm.Hash()
}

// Digest wraps raw hash output in a typed "algorithm:hex" digest
func (a *HashAlgorithm) Digest(sum []byte) digest.Digest {
	return digest.NewDigestFromBytes(a.Algorithm, sum)
}

var errInterrupted = errors.New("hash operation interrupted")

// hashInterruptible copies r into hasher through buffer, checking done before
// every read. It stops after limit bytes when limit is non-negative and
// returns the number of bytes consumed.
func hashInterruptible(r io.Reader, hasher hash.Hash, buffer []byte, limit int64, done <-chan struct{}) (int64, error) {
	var total int64
	for limit < 0 || total < limit {
		select {
		case <-done:
			return total, errInterrupted
		default:
		}

		chunk := buffer
		if limit >= 0 && int64(len(chunk)) > limit-total {
			chunk = chunk[:limit-total]
		}

		n, err := r.Read(chunk)
		if n > 0 {
			hasher.Write(chunk[:n])
			total += int64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// normaliseAlgorithmName lower-cases and trims an algorithm name from settings
func normaliseAlgorithmName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
