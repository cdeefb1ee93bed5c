package lsdups

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseHumanSize parses human-readable size strings (e.g., "10", "2M", "512k", "1G").
// Suffixes are 1024-based. Zero is allowed; callers that need a positive size check it.
func ParseHumanSize(sizeStr string) (uint64, error) {
	if strings.TrimSpace(sizeStr) == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Convert to uppercase for consistent parsing
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	numPart := sizeStr
	suffix := ""
	for i, char := range sizeStr {
		if !(char >= '0' && char <= '9' || char == '.') {
			numPart = sizeStr[:i]
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	// Apply multiplier based on suffix
	var multiplier uint64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1 << 10
	case "M", "MB":
		multiplier = 1 << 20
	case "G", "GB":
		multiplier = 1 << 30
	case "T", "TB":
		multiplier = 1 << 40
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	// Integers are parsed exactly so byte-precise thresholds survive
	if !strings.Contains(numPart, ".") {
		n, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
		}
		if n > math.MaxUint64/multiplier {
			return 0, fmt.Errorf("size too large: %s", sizeStr)
		}
		return n * multiplier, nil
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}
	result := num * float64(multiplier)
	if result >= math.MaxUint64 {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return uint64(result), nil
}

// ToMB converts a byte count to mebibytes for summary output
func ToMB(numBytes uint64) float64 {
	return float64(numBytes) / 1024.0 / 1024.0
}
