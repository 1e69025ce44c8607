package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v3"
)

func init() {
	govalidator.SetFieldsRequiredByDefault(true)

	// The built-in range validator only accepts non-negative integer bounds.
	govalidator.CustomTypeTagMap.Set("compresslevel", func(i interface{}, _ interface{}) bool {
		level, ok := i.(int)
		return ok && level >= -1 && level <= 9
	})
	govalidator.CustomTypeTagMap.Set("penwidth", func(i interface{}, _ interface{}) bool {
		width, ok := i.(float64)
		return ok && width >= 0.1 && width <= 50
	})
}

var (
	DefaultLocation string = "./pdfplace.toml" // Default location of the config file
	Settings        Config                     // Initialized once inside Read method Settings are stored in memory.
)

// Config is the root of the config
type Config struct {
	API       API       `toml:"api" yaml:"api" valid:"required"`
	Fetch     Fetch     `toml:"fetch" yaml:"fetch" valid:"required"`
	Composite Composite `toml:"composite" yaml:"composite" valid:"optional"`
	Output    Output    `toml:"output" yaml:"output" valid:"required"`
	Pad       Pad       `toml:"pad" yaml:"pad" valid:"required"`
}

// API configures submission of signed documents.
type API struct {
	BaseURL string `toml:"base_url" yaml:"base_url" valid:"url,optional"`
	Token   string `toml:"token" yaml:"token" valid:"optional"`
	// CompletePath may contain %d for the application id.
	CompletePath  string `toml:"complete_path" yaml:"complete_path" valid:"required"`
	Method        string `toml:"method" yaml:"method" valid:"in(POST|PUT|PATCH)"`
	Status        string `toml:"status" yaml:"status" valid:"optional"`
	ApplicationID int64  `toml:"application_id" yaml:"application_id" valid:"optional"`
}

// Fetch configures loading of documents and signature images.
type Fetch struct {
	Timeout  time.Duration `toml:"timeout" yaml:"timeout" valid:"required"`
	MaxBytes int64         `toml:"max_bytes" yaml:"max_bytes" valid:"optional"`
	BaseDir  string        `toml:"base_dir" yaml:"base_dir" valid:"optional"`
	Cache    bool          `toml:"cache" yaml:"cache" valid:"optional"`
}

// Composite configures how signed documents are written.
type Composite struct {
	// CompressLevel is a zlib level; -1 is the zlib default, 0 disables compression.
	CompressLevel int    `toml:"compress_level" yaml:"compress_level" valid:"compresslevel,optional"`
	UpdateInfo    bool   `toml:"update_info" yaml:"update_info" valid:"optional"`
	Producer      string `toml:"producer" yaml:"producer" valid:"optional"`
	Validate      bool   `toml:"validate" yaml:"validate" valid:"optional"`
}

// Output configures where downloads are written.
type Output struct {
	Dir string `toml:"dir" yaml:"dir" valid:"required"`
}

// Pad configures the live drawing pad.
type Pad struct {
	Width    int     `toml:"width" yaml:"width" valid:"range(1|4096)"`
	Height   int     `toml:"height" yaml:"height" valid:"range(1|4096)"`
	PenWidth float64 `toml:"pen_width" yaml:"pen_width" valid:"penwidth"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: API{
			CompletePath: "/applications/list/%d/sign/",
			Method:       "POST",
			Status:       "completed",
		},
		Fetch: Fetch{
			Timeout:  30 * time.Second,
			MaxBytes: 64 << 20,
			Cache:    true,
		},
		Composite: Composite{
			CompressLevel: -1,
			Producer:      "pdfplace",
		},
		Output: Output{
			Dir: ".",
		},
		Pad: Pad{
			Width:    400,
			Height:   200,
			PenWidth: 2,
		},
	}
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	if err != nil {
		return err
	}
	return nil
}

// Load reads configfile on top of Default. Files ending in .yaml or .yml are
// read as YAML, anything else as TOML.
func Load(configfile string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(configfile)
	if err != nil {
		return Config{}, fmt.Errorf("config file is missing: %w", err)
	}

	switch strings.ToLower(filepath.Ext(configfile)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", configfile, err)
		}
	default:
		if _, err := toml.Decode(string(data), &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", configfile, err)
		}
	}

	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}
	return c, nil
}

// Read loads configfile into Settings.
func Read(configfile string) error {
	c, err := Load(configfile)
	if err != nil {
		return err
	}
	Settings = c
	return nil
}
