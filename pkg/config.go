package lsdups

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ini/ini"
)

// ScanConfig is the immutable input of one scan
type ScanConfig struct {
	Root           string // directory to traverse
	IncludePattern string // optional; filename must match when set
	SkipPattern    string // optional; matching filenames are always rejected
	MinSize        uint64 // files smaller than this are rejected
}

// Config represents the lsdups tuning configuration backed by an INI file
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// DigestConfig represents partial digest and verification configuration
type DigestConfig struct {
	PartialSize string // Leading sample hashed for the partial digest (default: "4K")
	Verify      string // Verification policy: none, mmap
}

// OutputConfig represents output format configuration
type OutputConfig struct {
	Format string // Default output format: human, json, yaml, fdupes
	Color  string // auto, always, never
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int    // Number of concurrent hash workers (default: 4)
	HashBuffer  string // Read buffer size for interruptible hashing (default: "2M")
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Digest      *DigestConfig
	Output      *OutputConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
}

// DefaultConfig returns an in-memory configuration holding the defaults
func DefaultConfig() *Config {
	cfg := &Config{ini: ini.Empty()}
	cfg.setDefaults()
	return cfg
}

// LoadConfig loads configuration from configPath. A missing file yields the
// defaults; nothing is written because every scan is stateless.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.configPath = configPath
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return &Config{configPath: configPath, ini: iniFile}, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() {
	defaults := []struct {
		section, key, value, comment string
	}{
		{"filehash", "default", DefaultHashAlgorithm, "sha256, sha384 or sha512"},
		{"digest", "partial_size", DefaultPartialSize, "leading bytes hashed before a full read"},
		{"digest", "verify", DefaultVerifyMode, "none or mmap (byte-for-byte after full digest)"},
		{"performance", "hash_workers", fmt.Sprintf("%d", DefaultHashWorkers), ""},
		{"performance", "hash_buffer", DefaultHashBuffer, ""},
		{"output", "format", DefaultOutputFormat, "human, json, yaml or fdupes"},
		{"output", "color", DefaultColorMode, "auto, always or never"},
		{"verbose", "level", "0", "0-3"},
		{"verbose", "debug", "", "comma-separated: scan,digest,bucket,resolve"},
	}

	for _, d := range defaults {
		section := c.ini.Section(d.section)
		if section.HasKey(d.key) {
			continue
		}
		key := section.Key(d.key)
		key.SetValue(d.value)
		if d.comment != "" {
			key.Comment = "# " + d.comment
		}
	}
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm,
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			hashConfig.Default = normaliseAlgorithmName(section.Key("default").String())
		}
	}

	return hashConfig
}

// GetDigestConfig returns the digest configuration
func (c *Config) GetDigestConfig() *DigestConfig {
	digestConfig := &DigestConfig{
		PartialSize: DefaultPartialSize,
		Verify:      DefaultVerifyMode,
	}

	if c.ini.HasSection("digest") {
		section := c.ini.Section("digest")
		if section.HasKey("partial_size") {
			if size := section.Key("partial_size").String(); size != "" {
				digestConfig.PartialSize = size
			}
		}
		if section.HasKey("verify") {
			if verify := section.Key("verify").String(); verify != "" {
				digestConfig.Verify = strings.ToLower(verify)
			}
		}
	}

	return digestConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format: DefaultOutputFormat,
		Color:  DefaultColorMode,
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
		if section.HasKey("color") {
			outputConfig.Color = section.Key("color").String()
		}
	}

	return outputConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers,
		HashBuffer:  DefaultHashBuffer,
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
		if section.HasKey("hash_buffer") {
			if bufferSize := section.Key("hash_buffer").String(); bufferSize != "" {
				performanceConfig.HashBuffer = bufferSize
			}
		}
	}

	return performanceConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Digest:      c.GetDigestConfig(),
		Output:      c.GetOutputConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
	}
}

// Path returns the file the configuration was loaded from, if any
func (c *Config) Path() string {
	return c.configPath
}

// Save saves the configuration to the path it was loaded from
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("config has no file path")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration, defaults included, to path
func (c *Config) SaveTo(path string) error {
	c.setDefaults()
	if err := c.ini.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	c.configPath = path
	return nil
}

// overrideKeys maps override names onto their INI section
var overrideKeys = map[string]string{
	"default":      "filehash",
	"partial_size": "digest",
	"verify":       "digest",
	"hash_workers": "performance",
	"hash_buffer":  "performance",
	"format":       "output",
	"color":        "output",
	"level":        "verbose",
	"debug":        "verbose",
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "default:sha512", "format:json", "level:2", "verify:mmap"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		sectionName, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: default, partial_size, verify, hash_workers, hash_buffer, format, color, level, debug)", key)
		}
		c.ini.Section(sectionName).Key(key).SetValue(value)
	}

	return nil
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()

	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	if err := ValidateVerifyMode(all.Digest.Verify); err != nil {
		return err
	}
	if err := validatePositiveSize("partial_size", all.Digest.PartialSize); err != nil {
		return err
	}
	if err := validatePositiveSize("hash_buffer", all.Performance.HashBuffer); err != nil {
		return err
	}
	if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
		return err
	}
	if err := ValidateOutputFormat(all.Output.Format); err != nil {
		return err
	}
	if err := ValidateColorMode(all.Output.Color); err != nil {
		return err
	}
	return ValidateVerboseLevel(all.Verbose.Level)
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, ok := HashTypeFromName(algorithm); !ok {
		return fmt.Errorf("unsupported hash algorithm: %s (supported: sha256, sha384, sha512)", algorithm)
	}
	return nil
}

// ValidateVerifyMode validates the verification policy
func ValidateVerifyMode(mode string) error {
	switch strings.ToLower(mode) {
	case VerifyNone, VerifyMmap:
		return nil
	default:
		return fmt.Errorf("unsupported verify mode: %s (supported: none, mmap)", mode)
	}
}

// ValidateOutputFormat validates that an output format is supported
func ValidateOutputFormat(format string) error {
	switch strings.ToLower(format) {
	case "human", "json", "yaml", "fdupes":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s (supported: human, json, yaml, fdupes)", format)
	}
}

// ValidateColorMode validates the colour mode
func ValidateColorMode(mode string) error {
	switch strings.ToLower(mode) {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("unsupported color mode: %s (supported: auto, always, never)", mode)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > 64 {
		return fmt.Errorf("hash workers should not exceed 64, got: %d", workers)
	}
	return nil
}

func validatePositiveSize(name, value string) error {
	size, err := ParseHumanSize(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if size == 0 {
		return fmt.Errorf("%s must be positive: %s", name, value)
	}
	return nil
}
