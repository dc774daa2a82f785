package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	BotToken     string
	AppID        string
	GuildID      string
	OwnerUserID  string
	LogChannelID string

	// DatabaseBackend selects "mongo" or "sqlite".
	DatabaseBackend string
	MongoURI        string
	MongoDatabase   string
	SqlitePath      string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleCalendarID   string
	GoogleTokenPath    string
}

// Load reads configuration from the environment (with an optional .env
// file) and an optional config.yaml alongside the binary.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	viper.AutomaticEnv()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	viper.SetDefault("DATABASE_BACKEND", "mongo")
	viper.SetDefault("MONGO_DATABASE", "beniyu")
	viper.SetDefault("SQLITE_PATH", "./data/guild.db")
	viper.SetDefault("GOOGLE_TOKEN_PATH", "./credentials/api/google/token.json")

	cfg := &Config{
		BotToken:           viper.GetString("BOT_TOKEN"),
		AppID:              viper.GetString("APP_ID"),
		GuildID:            viper.GetString("GUILD_ID"),
		OwnerUserID:        viper.GetString("OWNER_USER_ID"),
		LogChannelID:       viper.GetString("LOG_CHANNEL_ID"),
		DatabaseBackend:    viper.GetString("DATABASE_BACKEND"),
		MongoURI:           viper.GetString("MONGO_URI"),
		MongoDatabase:      viper.GetString("MONGO_DATABASE"),
		SqlitePath:         viper.GetString("SQLITE_PATH"),
		GoogleClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  viper.GetString("GOOGLE_REDIRECT_URI"),
		GoogleCalendarID:   viper.GetString("GOOGLE_CALENDAR_ID"),
		GoogleTokenPath:    viper.GetString("GOOGLE_TOKEN_PATH"),
	}

	if cfg.BotToken == "" {
		log.Fatal("Error: BOT_TOKEN environment variable not set")
	}
	if cfg.GuildID == "" {
		log.Fatal("Error: GUILD_ID environment variable not set")
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, channel logging disabled")
	}
	if cfg.DatabaseBackend == "mongo" && cfg.MongoURI == "" {
		log.Fatal("Error: MONGO_URI environment variable not set")
	}

	return cfg, nil
}
