package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		AppName          string
		SecretKey        string // shared with the auth provider; verifies session tokens
		FrontendBaseURL  string
		WorkDir          string
		defaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Realtime RealtimeConfig
	}

	ServerConfig struct {
		Host            string
		APIHost         string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Name       string
		User       string
		Password   string
		Host       string
		Port       string
		DisableTLS bool
	}

	// StorageConfig points at the platform's object storage API.
	StorageConfig struct {
		BaseURL      string
		ServiceKey   string
		SignedURLTTL time.Duration
	}

	// RealtimeConfig points at the platform's change-feed endpoint.
	RealtimeConfig struct {
		URL               string
		HeartbeatInterval time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Gumzo")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "y=x3&ds$v0d)l#ewz(1+2qwah^$+f-8surm2emyc7#2(gu*zo")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.apiHost", "0.0.0.0:8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "gumzo")
	conf.SetDefault("database.user", "gumzo")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("storage.baseURL", "http://localhost:8001/storage/v1")
	conf.SetDefault("storage.signedURLTTL", time.Hour)

	conf.SetDefault("realtime.url", "ws://localhost:8002/realtime/v1")
	conf.SetDefault("realtime.heartbeatInterval", 30*time.Second)

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         testMode,
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		WorkDir:          wd,
		defaultFromEmail: conf.GetString("defaultFromEmail"),
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			APIHost:         conf.GetString("server.apiHost"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:     conf.GetString("database.engine"),
			Name:       conf.GetString("database.name"),
			User:       conf.GetString("database.user"),
			Password:   conf.GetString("database.password"),
			Host:       conf.GetString("database.host"),
			Port:       conf.GetString("database.port"),
			DisableTLS: conf.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			BaseURL:      conf.GetString("storage.baseURL"),
			ServiceKey:   conf.GetString("storage.serviceKey"),
			SignedURLTTL: conf.GetDuration("storage.signedURLTTL"),
		},
		Realtime: RealtimeConfig{
			URL:               conf.GetString("realtime.url"),
			HeartbeatInterval: conf.GetDuration("realtime.heartbeatInterval"),
		},
	}
}
