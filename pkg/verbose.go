package lsdups

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Debug components understood by DebugFlags
const (
	DebugScan    = "scan"
	DebugBucket  = "bucket"
	DebugDigest  = "digest"
	DebugResolve = "resolve"
)

// DebugFlags enables debug output per component
type DebugFlags map[string]bool

// ParseDebugFlags parses a comma-separated flag string.
// Supports both simple flags ("scan,digest") and key:value format ("scan:true,digest:false")
func ParseDebugFlags(flagsStr string) DebugFlags {
	flags := make(DebugFlags)
	if flagsStr == "" {
		return flags
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		// Handle flag:value format
		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		flags[flagName] = flagValue
	}

	return flags
}

// Enabled reports whether debug output is wanted for component. With no
// flags at all every component is enabled; once any flag is switched on only
// the named components are.
func (d DebugFlags) Enabled(component string) bool {
	component = strings.ToLower(component)
	if value, ok := d[component]; ok {
		return value
	}
	for _, on := range d {
		if on {
			return false
		}
	}
	return true
}

// verboseLevelToZap maps the 0..3 verbose scale onto zap levels
func verboseLevelToZap(level int) zapcore.Level {
	switch {
	case level <= 0:
		return zapcore.WarnLevel
	case level == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewLogger builds a console logger writing to w at the given verbose level.
// Level 3 additionally annotates every line with its caller.
func NewLogger(level int, w io.Writer) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.TimeKey = ""
	if level < 3 {
		encoderConfig.CallerKey = ""
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(verboseLevelToZap(level)),
	)

	if level >= 3 {
		return zap.New(core, zap.AddCaller())
	}
	return zap.New(core)
}

// componentLogger names the logger after component and drops its debug
// lines when the component's debug flag is off
func componentLogger(base *zap.Logger, flags DebugFlags, component string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	named := base.Named(component)
	if !flags.Enabled(component) && base.Core().Enabled(zapcore.DebugLevel) {
		return named.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
	}
	return named
}
