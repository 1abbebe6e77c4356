// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the rentshare configuration file.
//
// The file is a flat list of "key = value" lines. Blank lines and lines
// starting with '#' are ignored, unknown keys are skipped so that older
// binaries can read newer files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultSyncSchedule is how often the pool address is scanned for rent.
	DefaultSyncSchedule = "@every 1m"

	// DefaultFeeRate is the payout fee rate in sat/KB.
	DefaultFeeRate = uint64(1)

	configFileName = "config"
	dataDirName    = ".rentshare"
)

// Config holds the settings of a rentshare ledger.
type Config struct {
	DataDir      string
	Network      string
	LogLevel     string
	LogFile      string
	RPCURL       string
	RPCUser      string
	RPCPassword  string
	SyncSchedule string
	FeeRate      uint64
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DataDir:      DefaultDataDir(),
		Network:      "mainnet",
		LogLevel:     "info",
		SyncSchedule: DefaultSyncSchedule,
		FeeRate:      DefaultFeeRate,
	}
}

// DefaultDataDir returns ~/.rentshare, or ./.rentshare if the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(filepath.Clean(dataDir), configFileName)
}

// LoadConfig reads the file at path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "rpcurl":
		c.RPCURL = value
	case "rpcuser":
		c.RPCUser = value
	case "rpcpass":
		c.RPCPassword = value
	case "syncschedule":
		c.SyncSchedule = value
	case "feerate":
		rate, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("feerate: %w", err)
		}
		c.FeeRate = rate
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories. The file is
// written with owner-only permissions since it may hold RPC credentials.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# rentshare configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "\n# Node RPC\n")
	fmt.Fprintf(&b, "rpcurl = %s\n", cfg.RPCURL)
	fmt.Fprintf(&b, "rpcuser = %s\n", cfg.RPCUser)
	fmt.Fprintf(&b, "rpcpass = %s\n", cfg.RPCPassword)
	fmt.Fprintf(&b, "\n# Ledger\n")
	fmt.Fprintf(&b, "syncschedule = %s\n", cfg.SyncSchedule)
	fmt.Fprintf(&b, "feerate = %d\n", cfg.FeeRate)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
