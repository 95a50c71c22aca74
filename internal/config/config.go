package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Store backends for the saved composition list
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	LogFile string `mapstructure:"LOG_FILE"`

	UploadsDir     string `mapstructure:"UPLOADS_DIR"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	RedisUrl     string `mapstructure:"REDIS_URL"`
	RedisPrefix  string `mapstructure:"REDIS_PREFIX"`
	DBUrl        string `mapstructure:"DB_URL"`

	PostcodeAPIURL string        `mapstructure:"POSTCODE_API_URL"`
	GeocodeTimeout time.Duration `mapstructure:"GEOCODE_TIMEOUT"`

	RoomTypesCSV  string `mapstructure:"ROOM_TYPES_CSV"`
	RoomColorsCSV string `mapstructure:"ROOM_COLORS_CSV"`
}

func LoadConfig() (c Config, err error) {
	// Get environment type from ENV variable or use development as default
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	viper.SetDefault("PORT", ":8080")
	viper.SetDefault("LOG_FILE", "workbench.log")
	viper.SetDefault("UPLOADS_DIR", "public/uploads")
	viper.SetDefault("MAX_UPLOAD_BYTES", 10*1024*1024)
	viper.SetDefault("STORE_BACKEND", StoreSQLite)
	viper.SetDefault("SQLITE_PATH", "data/workbench.db")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_PREFIX", "workbench")
	viper.SetDefault("DB_URL", "")
	viper.SetDefault("POSTCODE_API_URL", "https://api.postcodes.io")
	viper.SetDefault("GEOCODE_TIMEOUT", "10s")
	viper.SetDefault("ROOM_TYPES_CSV", "data/room-types.csv")
	viper.SetDefault("ROOM_COLORS_CSV", "data/room-colors.csv")

	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Continue even if file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	if err = viper.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate checks settings that have no usable fallback
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if c.RedisUrl == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
