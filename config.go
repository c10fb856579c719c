package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"miniFeed/domain"
	"miniFeed/http"
)

// configFile is read from the working directory if present.
const configFile = ".config.json"

type Config struct {
	Port           int            `json:"port"`
	Env            string         `json:"env"`
	ImagesDir      string         `json:"images_dir"`
	AllowedOrigins []string       `json:"allowed_origins"`
	API            APIConfig      `json:"api"`
	Server         ServerConfig   `json:"server"`
	Database       PostgresConfig `json:"database"`
}

// APIConfig describes the api. It's shown at the api's root.
type APIConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Prefix      string `json:"prefix"`
}

// ServerConfig holds the http server's timeouts, in seconds.
type ServerConfig struct {
	ReadTimeout     int `json:"read_timeout"`
	WriteTimeout    int `json:"write_timeout"`
	IdleTimeout     int `json:"idle_timeout"`
	RequestTimeout  int `json:"request_timeout"`
	ShutdownTimeout int `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	// URL is a complete connection string. If set, it takes precedence over
	// the separate connection fields.
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`

	// StatementTimeout aborts statements running longer than this many milliseconds.
	StatementTimeout int `json:"statement_timeout"`

	MaxOpenConns    int `json:"max_open_conns"`
	MaxIdleConns    int `json:"max_idle_conns"`
	ConnMaxLifetime int `json:"conn_max_lifetime"` // seconds
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// HTTP converts the config into what the http server needs.
func (c Config) HTTP() http.Config {
	return http.Config{
		Addr:            ":" + strconv.Itoa(c.Port),
		Prefix:          c.API.Prefix,
		Title:           c.API.Title,
		Description:     c.API.Description,
		Version:         c.API.Version,
		ReadTimeout:     seconds(c.Server.ReadTimeout),
		WriteTimeout:    seconds(c.Server.WriteTimeout),
		IdleTimeout:     seconds(c.Server.IdleTimeout),
		RequestTimeout:  seconds(c.Server.RequestTimeout),
		ShutdownTimeout: seconds(c.Server.ShutdownTimeout),
		AllowedOrigins:  c.AllowedOrigins,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// ConnectionInfo returns the connection string for the database. The statement
// timeout travels along as a runtime parameter of the connection.
func (pc PostgresConfig) ConnectionInfo() string {
	if pc.URL != "" {
		if pc.StatementTimeout <= 0 {
			return pc.URL
		}
		sep := "?"
		if strings.Contains(pc.URL, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sstatement_timeout=%d", pc.URL, sep, pc.StatementTimeout)
	}

	info := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	if pc.Password != "" {
		info = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
	}
	if pc.StatementTimeout > 0 {
		info += fmt.Sprintf(" statement_timeout=%d", pc.StatementTimeout)
	}
	return info
}

func DefaultConfig() Config {
	return Config{
		Port:      8000,
		Env:       "dev",
		ImagesDir: domain.ImagesBaseDir,
		API: APIConfig{
			Title:       "Mini Social Media Feed API",
			Description: "A REST API for a social media feed",
			Version:     "1.0.0",
			Prefix:      http.DefaultPrefix,
		},
		Server: ServerConfig{
			ReadTimeout:     15,
			WriteTimeout:    30,
			IdleTimeout:     90,
			RequestTimeout:  10,
			ShutdownTimeout: 5,
		},
		Database: DefaultPostgresConfig(),
	}
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:             "localhost",
		Port:             5432,
		User:             "postgres",
		Password:         "",
		Name:             "mini_feed",
		StatementTimeout: 5000,
		MaxOpenConns:     20,
		MaxIdleConns:     10,
		ConnMaxLifetime:  1800,
	}
}

// LoadConfig loads configuration from a .config.json file if present, otherwise it uses
// the default dev setup. If configReq is true, the file is required and LoadConfig
// panics without it. Variables from a .env file and the environment override both.
func LoadConfig(configReq bool) Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env")
	}
	c, err := loadConfig(configFile, configReq, os.LookupEnv)
	if err != nil {
		panic(err)
	}
	return c
}

// loadConfig does the work of LoadConfig. lookup reads environment variables.
func loadConfig(path string, configReq bool, lookup func(string) (string, bool)) (Config, error) {
	c := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if configReq {
			return c, fmt.Errorf("a %s file is required: %w", path, err)
		}
	} else {
		defer f.Close()
		// Decoding over the defaults keeps them for every field the file leaves out.
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			return c, fmt.Errorf("err decoding %s: %w", path, err)
		}
		log.Printf("Successfully loaded %s", path)
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := lookup("ENV"); ok && v != "" {
		c.Env = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := lookup("IMAGES_DIR"); ok && v != "" {
		c.ImagesDir = v
	}
	return c, nil
}
