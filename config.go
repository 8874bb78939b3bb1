// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

var errConfigInvalid = errors.New("acts: invalid config")

// Config is the file form of engine options. Files are JSON with
// comments and trailing commas allowed.
//
//	{
//		// requests kept per direction
//		"pool_size": 512,
//		"scratch_size": 65536,
//		"default_timeout": "30s",
//		"log_level": "debug",
//		"sweeper": true,
//	}
type Config struct {
	PoolSize       *int     `json:"pool_size,omitempty"`
	ScratchSize    int      `json:"scratch_size,omitempty"`
	DefaultTimeout Duration `json:"default_timeout,omitempty"`
	LogLevel       string   `json:"log_level,omitempty"`
	Sweeper        *bool    `json:"sweeper,omitempty"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// UnmarshalJSON accepts "1.5s" style strings and integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", b)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ParseConfig parses a JSONC config.
func ParseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSONC: %w", errConfigInvalid, err)
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("acts: read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.PoolSize != nil && *c.PoolSize < 0:
		return fmt.Errorf("%w: pool_size must not be negative", errConfigInvalid)
	case c.ScratchSize < 0:
		return fmt.Errorf("%w: scratch_size must not be negative", errConfigInvalid)
	case c.DefaultTimeout < 0:
		return fmt.Errorf("%w: default_timeout must not be negative", errConfigInvalid)
	}
	_, err := ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	return nil
}

// Options converts c to engine options. Logs go to logOut when it is not
// nil.
func (c Config) Options(logOut io.Writer) ([]Option, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	var opts []Option
	if c.PoolSize != nil {
		opts = append(opts, WithPoolSize(*c.PoolSize))
	}
	if c.ScratchSize > 0 {
		opts = append(opts, WithScratchSize(c.ScratchSize))
	}
	if c.DefaultTimeout > 0 {
		opts = append(opts, WithDefaultTimeout(time.Duration(c.DefaultTimeout)))
	}
	if c.Sweeper != nil && !*c.Sweeper {
		opts = append(opts, WithoutSweeper())
	}
	if logOut != nil {
		level, _ := ParseLevel(c.LogLevel)
		opts = append(opts, WithLogger(NewLogger(logOut, level)))
	}
	return opts, nil
}
