package lsdups

import (
	"context"

	"go.uber.org/zap"
)

// This file holds the convenience entry points for library consumers

// FindDuplicates runs a single scan with the default configuration
func FindDuplicates(ctx context.Context, sc ScanConfig) ([]DuplicateGroup, error) {
	result, err := ScanWithConfigFile(ctx, "", sc, nil)
	if err != nil {
		return nil, err
	}
	return result.Groups, nil
}

// ScanWithConfigFile loads tuning from configPath (defaults when empty or
// missing) and runs one scan
func ScanWithConfigFile(ctx context.Context, configPath string, sc ScanConfig, logger *zap.Logger) (*Result, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, &ScanError{Kind: KindConfig, Path: configPath, Err: err}
	}
	engine, err := NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	return engine.Scan(ctx, sc)
}
