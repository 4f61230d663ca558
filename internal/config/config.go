package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gomca/domain/table"
	"gomca/internal/errors"
	"gomca/internal/mca"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Data     DataConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// AnalysisConfig holds the MCA parameters and resource limits
type AnalysisConfig struct {
	Components    int
	MaxComponents int
	MaxCells      int
	Concurrency   int // tables analyzed in parallel by batch runs
}

// DataConfig describes how to read the categorical table
type DataConfig struct {
	InputFile    string
	Sheet        string   // xlsx sheet, default Sheet1
	ClassField   string   // row label field
	ClassLevels  []string // optional declared class order, e.g. for legends
	MarkerFields []string // explicit marker list; empty means every non-class field
	MarkerPrefix string   // keep only marker fields starting with this prefix
	Query        string   // SQL query used by the postgres source
}

// OutputConfig controls where artifacts are written
type OutputConfig struct {
	Dir    string
	Format string // svg or png
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	limits := mca.DefaultConfig()

	components, err := getEnvPositiveInt("MCA_COMPONENTS", mca.DefaultComponents)
	if err != nil {
		return nil, err
	}
	maxComponents, err := getEnvPositiveInt("MCA_MAX_COMPONENTS", limits.MaxComponents)
	if err != nil {
		return nil, err
	}
	maxCells, err := getEnvPositiveInt("MCA_MAX_CELLS", limits.MaxCells)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvPositiveInt("MCA_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Analysis: AnalysisConfig{
			Components:    components,
			MaxComponents: maxComponents,
			MaxCells:      maxCells,
			Concurrency:   concurrency,
		},
		Data: DataConfig{
			InputFile:    getEnvOrDefault("MCA_INPUT_FILE", ""),
			Sheet:        getEnvOrDefault("MCA_SHEET", "Sheet1"),
			ClassField:   getEnvOrDefault("MCA_CLASS_FIELD", "Aggressiveness"),
			ClassLevels:  getEnvList("MCA_CLASS_LEVELS"),
			MarkerFields: getEnvList("MCA_MARKER_FIELDS"),
			MarkerPrefix: getEnvOrDefault("MCA_MARKER_PREFIX", ""),
			Query:        getEnvOrDefault("MCA_QUERY", ""),
		},
		Output: OutputConfig{
			Dir:    getEnvOrDefault("MCA_OUTPUT_DIR", "."),
			Format: strings.ToLower(getEnvOrDefault("MCA_PLOT_FORMAT", "svg")),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Analysis.Components > c.Analysis.MaxComponents {
		return errors.ConfigInvalid(fmt.Sprintf("MCA_COMPONENTS (%d) exceeds MCA_MAX_COMPONENTS (%d)",
			c.Analysis.Components, c.Analysis.MaxComponents))
	}
	if c.Data.ClassField == "" {
		return errors.ConfigInvalid("MCA_CLASS_FIELD cannot be empty")
	}
	switch c.Output.Format {
	case "svg", "png":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("MCA_PLOT_FORMAT must be svg or png, got %q", c.Output.Format))
	}
	return nil
}

// EngineConfig returns the limits for the MCA engine
func (c *Config) EngineConfig() mca.Config {
	return mca.Config{
		MaxComponents: c.Analysis.MaxComponents,
		MaxCells:      c.Analysis.MaxCells,
	}
}

// Selection returns the field selection described by the data settings
func (c *Config) Selection() table.Selection {
	return table.Selection{
		ClassField:   c.Data.ClassField,
		ClassLevels:  append([]string(nil), c.Data.ClassLevels...),
		MarkerFields: append([]string(nil), c.Data.MarkerFields...),
		MarkerPrefix: c.Data.MarkerPrefix,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvPositiveInt fails loudly on malformed values so a typo never silently
// changes analysis limits
func getEnvPositiveInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s must be a positive integer, got %q", key, value))
	}
	return n, nil
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
