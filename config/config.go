// Package config holds the tunables of the block I/O layer and loads them
// from Jsonnet files.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/go-jsonnet"
	"github.com/sirupsen/logrus"

	smsync "github.com/smntfs/go-smntfs/sync"
)

// SyncPolicy is the textual form of a sync.Policy
type SyncPolicy struct {
	// Mode is one of "immediate", "periodic" or "manual"
	Mode string `json:"mode"`
	// Interval is a Go duration string such as "5s"; only used by periodic
	Interval string `json:"interval"`
}

// Config controls caching, buffering and sync pacing
type Config struct {
	CacheSizeMB           int        `json:"cacheSizeMb"`
	WriteBufferSizeMB     int        `json:"writeBufferSizeMb"`
	EnableReadAhead       bool       `json:"enableReadAhead"`
	EnableWriteCoalescing bool       `json:"enableWriteCoalescing"`
	ReadAheadSizeKB       int        `json:"readAheadSizeKb"`
	BlockSize             int        `json:"blockSize"`
	SyncPolicy            SyncPolicy `json:"syncPolicy"`
	LogLevel              string     `json:"logLevel"`
}

// Default returns the configuration used when nothing is specified
func Default() *Config {
	return &Config{
		CacheSizeMB:           64,
		WriteBufferSizeMB:     32,
		EnableReadAhead:       true,
		EnableWriteCoalescing: true,
		ReadAheadSizeKB:       128,
		BlockSize:             512,
		SyncPolicy: SyncPolicy{
			Mode:     "periodic",
			Interval: smsync.DefaultInterval.String(),
		},
		LogLevel: "info",
	}
}

// LoadFromFile reads a Jsonnet file, or stdin if path is "-", evaluates it
// and overlays the result on Default(). The environment variables of the
// process are available to the file through std.extVar().
func LoadFromFile(path string) (*Config, error) {
	var (
		input []byte
		err   error
	)
	if path == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	return Load(path, string(input))
}

// Load evaluates a Jsonnet snippet. filename is only used in error messages
// and to resolve relative imports.
func Load(filename, snippet string) (*Config, error) {
	vm := jsonnet.MakeVM()
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid environment variable: %#v", env)
		}
		vm.ExtVar(parts[0], parts[1])
	}

	output, err := vm.EvaluateAnonymousSnippet(filename, snippet)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate configuration: %w", err)
	}

	c := Default()
	dec := json.NewDecoder(strings.NewReader(output))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every value is usable
func (c *Config) Validate() error {
	if c.CacheSizeMB < 0 {
		return fmt.Errorf("cache size must not be negative, got %d MB", c.CacheSizeMB)
	}
	if c.WriteBufferSizeMB < 0 {
		return fmt.Errorf("write buffer size must not be negative, got %d MB", c.WriteBufferSizeMB)
	}
	if c.EnableWriteCoalescing && c.WriteBufferSizeMB == 0 {
		return fmt.Errorf("write coalescing needs a write buffer")
	}
	if c.EnableReadAhead && c.ReadAheadSizeKB <= 0 {
		return fmt.Errorf("read-ahead needs a positive size, got %d KB", c.ReadAheadSizeKB)
	}
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block size %d is not a positive power of two", c.BlockSize)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WriteBufferBytes returns the write buffer size in bytes
func (c *Config) WriteBufferBytes() int {
	return c.WriteBufferSizeMB * 1024 * 1024
}

// ReadAheadBytes returns the read-ahead window in bytes, or 0 when read-ahead is off
func (c *Config) ReadAheadBytes() int {
	if !c.EnableReadAhead {
		return 0
	}
	return c.ReadAheadSizeKB * 1024
}

// Policy returns the configured sync policy
func (c *Config) Policy() (smsync.Policy, error) {
	var interval time.Duration
	if c.SyncPolicy.Interval != "" {
		d, err := time.ParseDuration(c.SyncPolicy.Interval)
		if err != nil {
			return smsync.Policy{}, fmt.Errorf("invalid sync interval %q: %w", c.SyncPolicy.Interval, err)
		}
		interval = d
	}
	return smsync.ParsePolicy(c.SyncPolicy.Mode, interval)
}
