package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	AppHomeDir = ".fieldtrack"
	// AppCfg is the application configuration.
	AppCfg AppConfig
	// BuildTime is set by the go build command - probably see the Makefile.
	BuildTime string
	// BuildVersion is set by the go build command - probably see the Makefile.
	BuildVersion string
)

func init() {
	// Load a .env file if present, then the app config from the environment.
	_ = godotenv.Load()
	err := envconfig.Process("", &AppCfg)
	if err != nil {
		fmt.Println("failed to process app config:", err)
		os.Exit(1)
	}
}

type AppConfig struct {
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	APIConfig     APIConfig     `envconfig:"API"`
	AuthConfig    AuthConfig    `envconfig:"AUTH"`
	ChannelConfig ChannelConfig `envconfig:"CHANNEL"`
	PollConfig    PollConfig    `envconfig:"POLL"`
	RenderConfig  RenderConfig  `envconfig:"RENDER"`
	WebConfig     WebConfig     `envconfig:"WEB"`
}

type APIConfig struct {
	// BaseURL is the base path of the field-operations REST API.
	BaseURL string `envconfig:"BASE_URL" default:"https://operaciones.example.com/api"`
	// Timeout applies to every outbound REST call.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`
	// UploadTimeout applies to evidence photo uploads, which carry file bodies.
	UploadTimeout time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"30s"`
}

type AuthConfig struct {
	// TokenFilePath is the file the bearer token is persisted to, relative to the app home dir.
	TokenFilePath string `envconfig:"TOKEN_FILE_PATH" default:"auth-token.yaml"`
}

type ChannelConfig struct {
	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	RedisDB  int    `envconfig:"REDIS_DB" default:"0"`
}

type PollConfig struct {
	// Interval is the cadence of the selected-route backup poll.
	Interval time.Duration `envconfig:"INTERVAL" default:"30s"`
}

type RenderConfig struct {
	// Backend selects the map surface: "canvas" (web) or "native".
	Backend string `envconfig:"BACKEND" default:"canvas"`
	// AnimationDuration is how long the native marker takes to glide to a new point.
	AnimationDuration time.Duration `envconfig:"ANIMATION_DURATION" default:"800ms"`
}

type WebConfig struct {
	WebEnabled bool   `envconfig:"ENABLED" default:"true"`
	WebPort    int    `envconfig:"PORT" default:"8080"`
	JWTSecret  string `envconfig:"JWT_SECRET" default:""`
}
