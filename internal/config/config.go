package config

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host         string        `env:"HOST" envDefault:"0.0.0.0"`
	Port         string        `env:"PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}

type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
	StoreDynamo   StoreDriver = "dynamodb"
)

type Store struct {
	Driver StoreDriver `env:"DRIVER" envDefault:"memory"`
}

type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	DBName   string `env:"DB" envDefault:"gamenight"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		p.Password,
		p.DBName,
		p.SSLMode,
	)
}

type SQLite struct {
	Path string `env:"PATH" envDefault:"gamenight.db"`
}

type Dynamo struct {
	Region        string `env:"REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"ENDPOINT"`
	SessionsTable string `env:"SESSIONS_TABLE" envDefault:"gamenight_sessions"`
	CatalogTable  string `env:"CATALOG_TABLE" envDefault:"gamenight_games"`
	UsersTable    string `env:"USERS_TABLE" envDefault:"gamenight_users"`
}

type RedisCache struct {
	Enabled     bool          `env:"ENABLED" envDefault:"false"`
	Host        string        `env:"HOST" envDefault:"localhost"`
	Port        string        `env:"PORT" envDefault:"6379"`
	Password    string        `env:"PASSWORD"`
	DB          int           `env:"DB" envDefault:"0"`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"3s"`
}

type Auth struct {
	Secret string `env:"SECRET,required"`
	Issuer string `env:"ISSUER" envDefault:"gamenight"`
}

type Host struct {
	AutoProvision bool `env:"AUTO_PROVISION" envDefault:"true"`
}

type Session struct {
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

type Tracing struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"gamenight"`
}

type Config struct {
	HTTP     HTTPServer `envPrefix:"HTTP_"`
	Store    Store      `envPrefix:"STORE_"`
	Postgres Postgres   `envPrefix:"POSTGRES_"`
	SQLite   SQLite     `envPrefix:"SQLITE_"`
	Dynamo   Dynamo     `envPrefix:"DYNAMO_"`
	Redis    RedisCache `envPrefix:"REDIS_"`
	Auth     Auth       `envPrefix:"AUTH_"`
	Host     Host       `envPrefix:"HOST_"`
	Session  Session    `envPrefix:"SESSION_"`
	Tracing  Tracing
}

const logtag = "[config]"

var secretKeys = map[string]bool{
	"AUTH_SECRET":       true,
	"POSTGRES_PASSWORD": true,
	"REDIS_PASSWORD":    true,
}

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg, err := Parse(nil)
	if err != nil {
		log.Fatalf("%s %v", logtag, err)
	}
	return cfg
}

// Parse reads the configuration from environ, or from the process
// environment when environ is nil.
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Environment: environ,
		OnSet: func(tag string, value any, isDefault bool) {
			if secretKeys[tag] {
				value = mask(fmt.Sprint(value))
			}
			if isDefault {
				log.Printf("%s %s undefined. Using default value %v", logtag, tag, value)
				return
			}
			log.Printf("%s %s = %v", logtag, tag, value)
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreSQLite, StoreDynamo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return fmt.Errorf("AUTH_SECRET must not be blank")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return s
	}
	return "****"
}
