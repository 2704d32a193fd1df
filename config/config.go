package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"couchmatch/models"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

const (
	DefaultBaseURL         = "http://localhost:8000"
	DefaultTimeout         = 10 * time.Second
	DefaultTriggerDistance = 5
	DefaultListen          = ":8000"
	DefaultPageSize        = 10
	DefaultMaxPageSize     = 100
	DefaultCacheExpiration = 30 * time.Second
)

// TomlClient configures the catalogue client and the feeds built on it
type TomlClient struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`

	// Rows from the bottom of the view at which the next page is requested
	TriggerDistance int `toml:"trigger_distance"`

	// Drop items already shown when a later page repeats them
	Dedupe bool `toml:"dedupe"`
}

// TomlServer configures the catalogue server
type TomlServer struct {
	Listen          string   `toml:"listen"`
	Database        string   `toml:"database"`
	PageSize        int      `toml:"page_size"`
	MaxPageSize     int      `toml:"max_page_size"`
	AllowOrigins    string   `toml:"allow_origins"`
	CacheExpiration Duration `toml:"cache_expiration"`
}

// TomlSofa is a catalogue entry inserted into an empty database
type TomlSofa struct {
	Name        string  `toml:"name"`
	Image       string  `toml:"image"`
	Price       float64 `toml:"price"`
	Discount    float64 `toml:"discount"`
	Description string  `toml:"description,omitempty"`

	// Defaults to 1, 0 lists the sofa as sold out
	Quantity *int `toml:"quantity"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Client TomlClient `toml:"client"`
	Server TomlServer `toml:"server"`
	Sofas  []TomlSofa `toml:"sofas"`
}

// Duration is a time.Duration written as a string such as "10s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given
func Default() *TomlConfig {
	return &TomlConfig{
		Client: TomlClient{
			BaseURL:         DefaultBaseURL,
			Timeout:         Duration{DefaultTimeout},
			TriggerDistance: DefaultTriggerDistance,
		},
		Server: TomlServer{
			Listen:          DefaultListen,
			Database:        ":memory:",
			PageSize:        DefaultPageSize,
			MaxPageSize:     DefaultMaxPageSize,
			AllowOrigins:    "*",
			CacheExpiration: Duration{DefaultCacheExpiration},
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. A missing
// file is only an error when required is set.
func LoadConfig(path string, required bool) (*TomlConfig, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return config, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

func (c *TomlConfig) Validate() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url is required")
	}
	if c.Client.Timeout.Duration <= 0 {
		return fmt.Errorf("client.timeout must be positive")
	}
	if c.Client.TriggerDistance < 0 {
		return fmt.Errorf("client.trigger_distance must not be negative")
	}
	if c.Server.PageSize < 1 {
		return fmt.Errorf("server.page_size must be at least 1")
	}
	if c.Server.MaxPageSize < c.Server.PageSize {
		return fmt.Errorf("server.max_page_size must be at least server.page_size")
	}
	for i, sofa := range c.Sofas {
		if sofa.Name == "" {
			return fmt.Errorf("sofas[%d]: name is required", i)
		}
		if sofa.Price <= 0 {
			return fmt.Errorf("sofas[%d] (%s): price must be positive", i, sofa.Name)
		}
		if sofa.Discount < 0 || sofa.Discount > 100 {
			return fmt.Errorf("sofas[%d] (%s): discount must be between 0 and 100", i, sofa.Name)
		}
		if sofa.Quantity != nil && *sofa.Quantity < 0 {
			return fmt.Errorf("sofas[%d] (%s): quantity must not be negative", i, sofa.Name)
		}
	}
	return nil
}

// SeedSofas converts the configured catalogue entries to models
func (c *TomlConfig) SeedSofas() []models.Sofa {
	return lo.Map(c.Sofas, func(s TomlSofa, _ int) models.Sofa {
		sofa := models.Sofa{
			Name:     s.Name,
			Image:    s.Image,
			Price:    s.Price,
			Discount: s.Discount,
			Quantity: lo.FromPtrOr(s.Quantity, 1),
		}
		if s.Description != "" {
			sofa.Description = lo.ToPtr(s.Description)
		}
		return sofa
	})
}
