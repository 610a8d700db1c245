package application

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-factorlens/internal/ports"
)

// ConfigLoader parses, overrides and validates configuration, caching the
// result by a hash of the source bytes and the effective overrides.
type ConfigLoader struct {
	validator *validator.Validate
	getenv    func(string) string

	cache   map[string]Config
	cacheMu sync.RWMutex
	// sf prevents duplicate parsing when several goroutines load the same
	// source at once.
	sf singleflight.Group
}

// NewConfigLoader creates a loader that reads overrides from the process
// environment.
func NewConfigLoader() (*ConfigLoader, error) {
	return newConfigLoader(os.Getenv)
}

func newConfigLoader(getenv func(string) string) (*ConfigLoader, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterConfigValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{
		validator: v,
		getenv:    getenv,
		cache:     make(map[string]Config),
	}, nil
}

// Load reads the config at path. An empty path yields the defaults with
// environment overrides applied.
func (cl *ConfigLoader) Load(path string) (Config, error) {
	if path == "" {
		return cl.load(nil)
	}
	return cl.LoadFromFile(path)
}

// LoadFromFile loads the YAML config at path.
func (cl *ConfigLoader) LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		return Config{}, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.load(data)
}

// LoadFromReader loads a YAML config from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (Config, error) {
	overrides := cl.overrides()
	hash := cl.hash(data, overrides)

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		// Check cache inside singleflight to handle the race between the
		// cache check and group execution.
		if cfg, ok := cl.getCached(hash); ok {
			return cfg, nil
		}

		cfg := DefaultConfig()
		if len(bytes.TrimSpace(data)) > 0 {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to parse YAML: %w", err)
			}
		}
		applyOverrides(&cfg, overrides)

		if err := cl.Validate(cfg); err != nil {
			return nil, err
		}

		cl.cacheMu.Lock()
		cl.cache[hash] = cfg
		cl.cacheMu.Unlock()
		return cfg, nil
	})
	if err != nil {
		return Config{}, err
	}
	return v.(Config), nil
}

// Validate checks cfg against its struct tags.
func (cl *ConfigLoader) Validate(cfg Config) error {
	err := cl.validator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return ports.NewConfigError(fe.Namespace(), fmt.Errorf("failed %q validation (value %v)", fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("validation failed: %w", err)
}

// ClearCache drops every cached config.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()
	cl.cache = make(map[string]Config)
}

func (cl *ConfigLoader) getCached(hash string) (Config, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()
	cfg, ok := cl.cache[hash]
	return cfg, ok
}

type envOverrides struct {
	apiURL    string
	streamURL string
}

func (cl *ConfigLoader) overrides() envOverrides {
	return envOverrides{
		apiURL:    strings.TrimSpace(cl.getenv(EnvAPIURL)),
		streamURL: strings.TrimSpace(cl.getenv(EnvStreamURL)),
	}
}

func applyOverrides(cfg *Config, o envOverrides) {
	if o.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(o.apiURL, "/")
	}
	if o.streamURL != "" {
		cfg.Stream.URL = o.streamURL
	}
}

func (cl *ConfigLoader) hash(data []byte, o envOverrides) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(o.apiURL))
	h.Write([]byte{0})
	h.Write([]byte(o.streamURL))
	return hex.EncodeToString(h.Sum(nil))
}
