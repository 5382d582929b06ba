package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrValidation wraps every config validation failure so callers can
// distinguish a bad config file from a read error.
var ErrValidation = errors.New("invalid configuration")

// SumoConfig holds connection and stepping settings for the source simulation.
type SumoConfig struct {
	Host       string  `json:"host" mapstructure:"host"`
	Port       int     `json:"port" mapstructure:"port"`
	ConfigFile string  `json:"configFile" mapstructure:"configFile"`
	NetFile    string  `json:"netFile" mapstructure:"netFile"`
	StepLength float64 `json:"stepLength" mapstructure:"stepLength"`
}

// WorldConfig holds one target-world endpoint.
type WorldConfig struct {
	Name string `json:"name" mapstructure:"name"`
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// ZoneConfig describes the handoff boundary between the two worlds.
// Start and End bound the buffer interval on the configured axis;
// ZOffset is the spawn height in the target frame.
type ZoneConfig struct {
	Axis    string  `json:"axis" mapstructure:"axis"`
	Start   float64 `json:"start" mapstructure:"start"`
	End     float64 `json:"end" mapstructure:"end"`
	ZOffset float64 `json:"zOffset" mapstructure:"zOffset"`
}

// CalibrationConfig selects the coordinate calibration scheme.
type CalibrationConfig struct {
	Scheme             string `json:"scheme" mapstructure:"scheme"`
	ProjectGeoBoundary bool   `json:"projectGeoBoundary" mapstructure:"projectGeoBoundary"`
}

// SQLiteJournalConfig holds SQLite journal backend settings.
type SQLiteJournalConfig struct {
	Path         string
	DumpInterval time.Duration
}

// DBConfig holds Postgres journal backend settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// JournalConfig selects and configures the run journal backend.
type JournalConfig struct {
	Type   string
	SQLite SQLiteJournalConfig
	DB     DBConfig
}

// InfluxConfig holds InfluxDB settings for the step monitor.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
	Interval time.Duration
}

// GraylogConfig holds the optional GELF log sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from the given JSON file, applies defaults and
// validates everything the core needs before any connection is attempted.
func Load(path string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./bridgelogs")

	viper.SetDefault("sumo.host", "localhost")
	viper.SetDefault("sumo.port", 8813)
	viper.SetDefault("sumo.stepLength", 0.05)

	viper.SetDefault("zone.zOffset", 0.1)

	viper.SetDefault("calibration.scheme", "offset")
	viper.SetDefault("calibration.projectGeoBoundary", false)

	viper.SetDefault("journal.type", "none")
	viper.SetDefault("journal.sqlite.path", "./bridge_journal.db")
	viper.SetDefault("journal.sqlite.dumpInterval", "3m")
	viper.SetDefault("journal.db.host", "localhost")
	viper.SetDefault("journal.db.port", "5432")
	viper.SetDefault("journal.db.username", "postgres")
	viper.SetDefault("journal.db.password", "postgres")
	viper.SetDefault("journal.db.database", "bridge")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "bridge-metrics")
	viper.SetDefault("influx.bucket", "bridge_performance")
	viper.SetDefault("influx.interval", "1s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return validate()
}

// validate rejects malformed configuration before the core starts.
func validate() error {
	if viper.GetString("sumo.configFile") == "" {
		return fmt.Errorf("%w: sumo.configFile is required", ErrValidation)
	}

	worlds := GetWorldConfigs()
	if len(worlds) != 2 {
		return fmt.Errorf("%w: exactly 2 worlds must be configured, got %d", ErrValidation, len(worlds))
	}
	for i, w := range worlds {
		if w.Host == "" || w.Port == 0 {
			return fmt.Errorf("%w: world %d is missing host or port", ErrValidation, i)
		}
	}

	zone := GetZoneConfig()
	if zone.Axis != "x" && zone.Axis != "y" {
		return fmt.Errorf("%w: zone.axis must be 'x' or 'y', got %q", ErrValidation, zone.Axis)
	}
	if zone.Start > zone.End {
		return fmt.Errorf("%w: zone.start (%v) must not exceed zone.end (%v)", ErrValidation, zone.Start, zone.End)
	}

	cal := GetCalibrationConfig()
	if cal.Scheme != "offset" && cal.Scheme != "boundary" {
		return fmt.Errorf("%w: calibration.scheme must be 'offset' or 'boundary', got %q", ErrValidation, cal.Scheme)
	}
	if cal.Scheme == "boundary" && viper.GetString("sumo.netFile") == "" {
		return fmt.Errorf("%w: calibration.scheme 'boundary' requires sumo.netFile", ErrValidation)
	}

	switch t := viper.GetString("journal.type"); t {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: journal.type must be 'none', 'sqlite' or 'postgres', got %q", ErrValidation, t)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetSumoConfig returns source simulation settings.
func GetSumoConfig() SumoConfig {
	return SumoConfig{
		Host:       viper.GetString("sumo.host"),
		Port:       viper.GetInt("sumo.port"),
		ConfigFile: viper.GetString("sumo.configFile"),
		NetFile:    viper.GetString("sumo.netFile"),
		StepLength: viper.GetFloat64("sumo.stepLength"),
	}
}

// GetWorldConfigs returns the configured target-world endpoints.
func GetWorldConfigs() []WorldConfig {
	var worlds []WorldConfig
	if err := viper.UnmarshalKey("worlds", &worlds); err != nil {
		return nil
	}
	return worlds
}

// GetZoneConfig returns the handoff zone settings.
func GetZoneConfig() ZoneConfig {
	return ZoneConfig{
		Axis:    viper.GetString("zone.axis"),
		Start:   viper.GetFloat64("zone.start"),
		End:     viper.GetFloat64("zone.end"),
		ZOffset: viper.GetFloat64("zone.zOffset"),
	}
}

// GetCalibrationConfig returns the coordinate calibration settings.
func GetCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Scheme:             viper.GetString("calibration.scheme"),
		ProjectGeoBoundary: viper.GetBool("calibration.projectGeoBoundary"),
	}
}

// GetJournalConfig returns run journal settings.
func GetJournalConfig() JournalConfig {
	return JournalConfig{
		Type: viper.GetString("journal.type"),
		SQLite: SQLiteJournalConfig{
			Path:         viper.GetString("journal.sqlite.path"),
			DumpInterval: viper.GetDuration("journal.sqlite.dumpInterval"),
		},
		DB: DBConfig{
			Host:     viper.GetString("journal.db.host"),
			Port:     viper.GetString("journal.db.port"),
			Username: viper.GetString("journal.db.username"),
			Password: viper.GetString("journal.db.password"),
			Database: viper.GetString("journal.db.database"),
		},
	}
}

// GetInfluxConfig returns step monitor settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Interval: viper.GetDuration("influx.interval"),
	}
}

// GetGraylogConfig returns GELF log sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
