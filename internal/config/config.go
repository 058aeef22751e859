package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"

	"energy_harmonizer/internal/clean"
	"energy_harmonizer/internal/ingest"
	"energy_harmonizer/internal/model"
	"energy_harmonizer/internal/pipeline"
)

// Config represents the complete application configuration
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PipelineConfig holds thresholds and merge behavior
type PipelineConfig struct {
	ResidentialBound  float64       `mapstructure:"residential_bound"`
	CommercialBound   float64       `mapstructure:"commercial_bound"`
	MinNonNaN         int           `mapstructure:"min_non_nan"`
	WeatherParameters []string      `mapstructure:"weather_parameters"`
	Years             []int         `mapstructure:"years"`
	AreaPrefixes      []AreaPrefix  `mapstructure:"area_prefixes"`
	WeatherResolution time.Duration `mapstructure:"weather_resolution"`
	KeepQuality       bool          `mapstructure:"keep_quality"`
	Workers           int           `mapstructure:"workers"`
}

// AreaPrefix maps every AREA value starting with Prefix to Area.
type AreaPrefix struct {
	Prefix string `mapstructure:"prefix"`
	Area   string `mapstructure:"area"`
}

// FileSpec names one input file. Parameter is only used for weather files.
type FileSpec struct {
	Path      string `mapstructure:"path"`
	Year      int    `mapstructure:"year"`
	Parameter string `mapstructure:"parameter"`
	// Type is the dataset-type tag of an input.sources entry. The typed
	// lists set it themselves.
	Type string `mapstructure:"type"`
}

// InputConfig lists the source files of a run and how to decode them
type InputConfig struct {
	Encoding             string     `mapstructure:"encoding"`
	ConsumptionDelimiter string     `mapstructure:"consumption_delimiter"`
	PriceEncoding        string     `mapstructure:"price_encoding"`
	PriceDelimiter       string     `mapstructure:"price_delimiter"`
	WeatherEncoding      string     `mapstructure:"weather_encoding"`
	WeatherDelimiter     string     `mapstructure:"weather_delimiter"`
	Consumption          []FileSpec `mapstructure:"consumption"`
	Prices               []FileSpec `mapstructure:"prices"`
	Weather              []FileSpec `mapstructure:"weather"`
	// Sources lists files of any dataset type, each tagged with its type.
	Sources []FileSpec `mapstructure:"sources"`
}

type fileList struct {
	key   string
	tag   model.DatasetType
	specs []FileSpec
}

func (in InputConfig) lists() []fileList {
	return []fileList{
		{"input.consumption", model.DatasetConsumption, in.Consumption},
		{"input.prices", model.DatasetPrice, in.Prices},
		{"input.weather", model.DatasetWeather, in.Weather},
		{"input.sources", "", in.Sources},
	}
}

// Files returns every configured input file with its dataset-type tag set,
// the typed lists first and input.sources last, each in configured order.
func (in InputConfig) Files() []FileSpec {
	var files []FileSpec
	for _, l := range in.lists() {
		for _, f := range l.specs {
			if l.tag != "" {
				f.Type = string(l.tag)
			}
			files = append(files, f)
		}
	}
	return files
}

// OutputConfig holds the destinations of a run. Empty paths are skipped.
type OutputConfig struct {
	CSVPath          string `mapstructure:"csv_path"`
	Delimiter        string `mapstructure:"delimiter"`
	XLSXPath         string `mapstructure:"xlsx_path"`
	XLSXSheet        string `mapstructure:"xlsx_sheet"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresTable    string `mapstructure:"postgres_table"`
	PostgresReplace  bool   `mapstructure:"postgres_replace"`
	ConsolidatedPath string `mapstructure:"consolidated_path"`
	WeatherPath      string `mapstructure:"weather_path"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	MaxRuns int    `mapstructure:"max_runs"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// HARMONIZE_OUTPUT_POSTGRES_DSN overrides output.postgres_dsn
	v.SetEnvPrefix("HARMONIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	th := clean.DefaultThresholds()
	v.SetDefault("pipeline.residential_bound", th.Residential)
	v.SetDefault("pipeline.commercial_bound", th.Commercial)
	v.SetDefault("pipeline.min_non_nan", th.MinNonNaN)
	v.SetDefault("pipeline.weather_parameters", []string{"4", "19", "26", "27"})
	v.SetDefault("pipeline.years", []int{2020, 2021, 2022, 2023})
	v.SetDefault("pipeline.area_prefixes", []map[string]interface{}{
		{"prefix": "Stens", "area": "Stensö"},
	})
	v.SetDefault("pipeline.weather_resolution", "1h")
	v.SetDefault("pipeline.keep_quality", false)
	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("input.encoding", ingest.DefaultEncoding)
	v.SetDefault("input.consumption_delimiter", ",")
	v.SetDefault("input.price_encoding", "utf-8")
	v.SetDefault("input.price_delimiter", ",")
	v.SetDefault("input.weather_encoding", ingest.SMHIEncoding)
	v.SetDefault("input.weather_delimiter", string(ingest.SMHIDelimiter))

	v.SetDefault("output.csv_path", "./data/harmonized.csv")
	v.SetDefault("output.delimiter", ";")
	v.SetDefault("output.xlsx_path", "")
	v.SetDefault("output.xlsx_sheet", "harmonized")
	v.SetDefault("output.postgres_dsn", "")
	v.SetDefault("output.postgres_table", "harmonized_dataset")
	v.SetDefault("output.postgres_replace", true)
	v.SetDefault("output.consolidated_path", "")
	v.SetDefault("output.weather_path", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_runs", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	th := c.Thresholds()
	if err := th.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Pipeline.WeatherResolution < 0 {
		return fmt.Errorf("pipeline.weather_resolution must not be negative")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	for i, p := range c.Pipeline.AreaPrefixes {
		if p.Prefix == "" || p.Area == "" {
			return fmt.Errorf("pipeline.area_prefixes[%d] needs both prefix and area", i)
		}
	}

	encodings := []struct{ key, name string }{
		{"input.encoding", c.Input.Encoding},
		{"input.price_encoding", c.Input.PriceEncoding},
		{"input.weather_encoding", c.Input.WeatherEncoding},
	}
	for _, e := range encodings {
		if _, err := ingest.Lookup(e.name); err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
	}
	delimiters := []struct{ key, value string }{
		{"input.consumption_delimiter", c.Input.ConsumptionDelimiter},
		{"input.price_delimiter", c.Input.PriceDelimiter},
		{"input.weather_delimiter", c.Input.WeatherDelimiter},
		{"output.delimiter", c.Output.Delimiter},
	}
	for _, d := range delimiters {
		if utf8.RuneCountInString(d.value) != 1 {
			return fmt.Errorf("%s must be a single character", d.key)
		}
	}

	consumption := 0
	for _, l := range c.Input.lists() {
		for i, f := range l.specs {
			key := fmt.Sprintf("%s[%d]", l.key, i)
			if f.Path == "" {
				return fmt.Errorf("%s.path is required", key)
			}
			dt := l.tag
			if dt == "" {
				var err error
				if dt, err = model.ParseDatasetType(f.Type); err != nil {
					return fmt.Errorf("%s.type: %w", key, err)
				}
			}
			switch dt {
			case model.DatasetConsumption:
				consumption++
			case model.DatasetWeather:
				if f.Parameter == "" {
					return fmt.Errorf("%s.parameter is required", key)
				}
			}
		}
	}
	if consumption == 0 {
		return fmt.Errorf("input.consumption must list at least one file")
	}

	if c.Server.MaxRuns < 1 {
		return fmt.Errorf("server.max_runs must be at least 1")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}

func (c *Config) Thresholds() clean.Thresholds {
	return clean.Thresholds{
		Residential: c.Pipeline.ResidentialBound,
		Commercial:  c.Pipeline.CommercialBound,
		MinNonNaN:   c.Pipeline.MinNonNaN,
	}
}

// PipelineConfig converts the pipeline section to a pipeline.Config.
func (c *Config) PipelineConfig() pipeline.Config {
	var prefixes map[string]string
	if len(c.Pipeline.AreaPrefixes) > 0 {
		prefixes = make(map[string]string, len(c.Pipeline.AreaPrefixes))
		for _, p := range c.Pipeline.AreaPrefixes {
			prefixes[p.Prefix] = p.Area
		}
	}
	return pipeline.Config{
		Thresholds:        c.Thresholds(),
		WeatherParameters: c.Pipeline.WeatherParameters,
		Years:             c.Pipeline.Years,
		AreaPrefixes:      prefixes,
		WeatherResolution: c.Pipeline.WeatherResolution,
		KeepQuality:       c.Pipeline.KeepQuality,
		Workers:           c.Pipeline.Workers,
	}
}

// Delimiter returns the first rune of s, or def when s is empty.
func Delimiter(s string, def rune) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return def
	}
	return r
}
