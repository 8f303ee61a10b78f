package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "tour360.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. TOUR360_SERVER_ADDR.
const EnvPrefix = "TOUR360"

// StorageConfig selects and configures the tour slot backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Slot     string         `json:"slot" mapstructure:"slot"`
	Autosave bool           `json:"autosave" mapstructure:"autosave"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings. An empty Path keeps
// the database in memory and dumps it to DumpPath periodically.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// DSN renders a libpq key/value connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// ViewerConfig holds engine defaults for every viewer session.
type ViewerConfig struct {
	HFOV            float64 `json:"hfov" mapstructure:"hfov"`
	MinHFOV         float64 `json:"minHfov" mapstructure:"minHfov"`
	MaxHFOV         float64 `json:"maxHfov" mapstructure:"maxHfov"`
	Friction        float64 `json:"friction" mapstructure:"friction"`
	DragDeadZone    float64 `json:"dragDeadZone" mapstructure:"dragDeadZone"`
	DoubleClickZoom bool    `json:"doubleClickZoom" mapstructure:"doubleClickZoom"`
}

// MediaConfig configures image preparation and the object store.
type MediaConfig struct {
	Dir         string      `json:"dir" mapstructure:"dir"`
	MaxWidth    int         `json:"maxWidth" mapstructure:"maxWidth"`
	JPEGQuality int         `json:"jpegQuality" mapstructure:"jpegQuality"`
	Backend     string      `json:"backend" mapstructure:"backend"`
	MinIO       MinIOConfig `json:"minio" mapstructure:"minio"`
}

// MinIOConfig holds S3-compatible object store settings.
type MinIOConfig struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"accessKey" mapstructure:"accessKey"`
	SecretKey string `json:"secretKey" mapstructure:"secretKey"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `json:"useSSL" mapstructure:"useSSL"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `json:"addr" mapstructure:"addr"`
	CORSOrigins []string `json:"corsOrigins" mapstructure:"corsOrigins"`
	WSPath      string   `json:"wsPath" mapstructure:"wsPath"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB telemetry settings.
type InfluxConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Protocol  string `json:"protocol" mapstructure:"protocol"`
	Token     string `json:"token" mapstructure:"token"`
	Org       string `json:"org" mapstructure:"org"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	BackupDir string `json:"backupDir" mapstructure:"backupDir"`
}

// URL returns the server URL built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF output settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// SetDefaults registers every default value. Load calls it; tests and the
// CLI call it directly when no config file is present.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("tour.defaultName", "My 360 Tour")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.slot", "tour360_data")
	viper.SetDefault("storage.autosave", true)
	viper.SetDefault("storage.memory.outputDir", "./data")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./data/tour360.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "tour360")
	viper.SetDefault("storage.postgres.sslmode", "disable")

	viper.SetDefault("viewer.hfov", 100.0)
	viper.SetDefault("viewer.minHfov", 50.0)
	viper.SetDefault("viewer.maxHfov", 120.0)
	viper.SetDefault("viewer.friction", 0.2)
	viper.SetDefault("viewer.dragDeadZone", 4.0)
	viper.SetDefault("viewer.doubleClickZoom", false)

	viper.SetDefault("media.dir", "./media")
	viper.SetDefault("media.maxWidth", 4096)
	viper.SetDefault("media.jpegQuality", 85)
	viper.SetDefault("media.backend", "local")
	viper.SetDefault("media.minio.endpoint", "localhost:9000")
	viper.SetDefault("media.minio.accessKey", "")
	viper.SetDefault("media.minio.secretKey", "")
	viper.SetDefault("media.minio.bucket", "tour360")
	viper.SetDefault("media.minio.useSSL", false)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.corsOrigins", []string{"*"})
	viper.SetDefault("server.wsPath", "/ws")

	viper.SetDefault("watcher.enabled", true)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tour360")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "tour360")
	viper.SetDefault("influx.bucket", "tour_events")
	viper.SetDefault("influx.backupDir", "./data")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:     viper.GetString("storage.type"),
		Slot:     viper.GetString("storage.slot"),
		Autosave: viper.GetBool("storage.autosave"),
		Memory:   GetMemoryConfig(),
		SQLite:   GetSQLiteConfig(),
		Postgres: GetPostgresConfig(),
	}
}

func GetMemoryConfig() MemoryConfig {
	return MemoryConfig{
		OutputDir:      viper.GetString("storage.memory.outputDir"),
		CompressOutput: viper.GetBool("storage.memory.compressOutput"),
	}
}

func GetSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         viper.GetString("storage.sqlite.path"),
		DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
	}
}

func GetPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     viper.GetString("storage.postgres.host"),
		Port:     viper.GetString("storage.postgres.port"),
		Username: viper.GetString("storage.postgres.username"),
		Password: viper.GetString("storage.postgres.password"),
		Database: viper.GetString("storage.postgres.database"),
		SSLMode:  viper.GetString("storage.postgres.sslmode"),
	}
}

func GetViewerConfig() ViewerConfig {
	return ViewerConfig{
		HFOV:            viper.GetFloat64("viewer.hfov"),
		MinHFOV:         viper.GetFloat64("viewer.minHfov"),
		MaxHFOV:         viper.GetFloat64("viewer.maxHfov"),
		Friction:        viper.GetFloat64("viewer.friction"),
		DragDeadZone:    viper.GetFloat64("viewer.dragDeadZone"),
		DoubleClickZoom: viper.GetBool("viewer.doubleClickZoom"),
	}
}

func GetMediaConfig() MediaConfig {
	return MediaConfig{
		Dir:         viper.GetString("media.dir"),
		MaxWidth:    viper.GetInt("media.maxWidth"),
		JPEGQuality: viper.GetInt("media.jpegQuality"),
		Backend:     viper.GetString("media.backend"),
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("media.minio.endpoint"),
			AccessKey: viper.GetString("media.minio.accessKey"),
			SecretKey: viper.GetString("media.minio.secretKey"),
			Bucket:    viper.GetString("media.minio.bucket"),
			UseSSL:    viper.GetBool("media.minio.useSSL"),
		},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        viper.GetString("server.addr"),
		CORSOrigins: viper.GetStringSlice("server.corsOrigins"),
		WSPath:      viper.GetString("server.wsPath"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Protocol:  viper.GetString("influx.protocol"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}
