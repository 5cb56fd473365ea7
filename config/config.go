// Package config loads server settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thadeucbr/mcp-tools/logging"
)

// Transports accepted by Server.Transport.
const (
	TransportStdio     = "stdio"
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
)

// Config is the full application configuration.
type Config struct {
	Server   Server         `yaml:"server"`
	Log      logging.Config `yaml:"log"`
	Mongo    Mongo          `yaml:"mongo"`
	OpenAI   OpenAI         `yaml:"openai"`
	WhatsApp WhatsApp       `yaml:"whatsapp"`
}

// Server configures the MCP endpoint.
type Server struct {
	Name            string        `yaml:"name"`
	Transport       string        `yaml:"transport"`
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RatePerSecond   int           `yaml:"ratePerSecond"`
	RateBurst       int           `yaml:"rateBurst"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// Mongo locates the meal collection.
type Mongo struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Collection  string `yaml:"collection"`
	MaxPoolSize uint64 `yaml:"maxPoolSize"`
	// Timezone is the IANA zone that defines a user's day. Empty means
	// the host's local zone.
	Timezone       string        `yaml:"timezone"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// OpenAI configures the media tools. They are disabled without an API key.
type OpenAI struct {
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
	SpeechModel   string `yaml:"speechModel"`
	Voice         string `yaml:"voice"`
	ImageModel    string `yaml:"imageModel"`
	ResearchModel string `yaml:"researchModel"`
	OutputDir     string `yaml:"outputDir"`
}

// WhatsApp configures the gateway tools. They are disabled without a URL.
type WhatsApp struct {
	BaseURL       string        `yaml:"baseURL"`
	APIKey        string        `yaml:"apiKey"`
	Session       string        `yaml:"session"`
	RatePerSecond int           `yaml:"ratePerSecond"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Name:            "mcp-tools",
			Transport:       TransportStdio,
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
			RatePerSecond:   20,
			RateBurst:       40,
			MaxBodyBytes:    4 << 20,
		},
		Log: logging.Config{Level: "info", Format: "json"},
		Mongo: Mongo{
			Database:       "mcp_tools",
			Collection:     "meals",
			MaxPoolSize:    20,
			ConnectTimeout: 10 * time.Second,
		},
		OpenAI: OpenAI{
			SpeechModel:   "tts-1",
			Voice:         "alloy",
			ImageModel:    "dall-e-3",
			ResearchModel: "gpt-4o",
			OutputDir:     os.TempDir(),
		},
		WhatsApp: WhatsApp{
			Session:       "default",
			RatePerSecond: 5,
			Timeout:       30 * time.Second,
		},
	}
}

// Load builds a Config. path names an optional YAML file; envFiles are
// .env files loaded into the environment when present. Variables already
// set in the environment win over .env values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that would prevent the server from starting.
func (c Config) Validate() error {
	var errs []error

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP, TransportWebSocket:
	default:
		errs = append(errs, fmt.Errorf("server.transport: unknown transport %q", c.Server.Transport))
	}
	if c.Server.Transport != TransportStdio && c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required for network transports"))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if c.Mongo.Database == "" || c.Mongo.Collection == "" {
		errs = append(errs, errors.New("mongo.database and mongo.collection are required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.RatePerSecond < 0 || c.WhatsApp.RatePerSecond < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Location resolves Mongo.Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Mongo.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Mongo.Timezone)
	if err != nil {
		return nil, fmt.Errorf("mongo.timezone: %w", err)
	}
	return loc, nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays MCP_* and provider variables onto cfg.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("MCP_SERVER_NAME", &cfg.Server.Name)
	e.str("MCP_TRANSPORT", &cfg.Server.Transport)
	e.str("MCP_ADDR", &cfg.Server.Addr)
	e.dur("MCP_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.dur("MCP_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.dur("MCP_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	e.dur("MCP_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	e.integer("MCP_RATE_PER_SECOND", &cfg.Server.RatePerSecond)
	e.integer("MCP_RATE_BURST", &cfg.Server.RateBurst)
	e.int64("MCP_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	e.str("MONGO_URI", &cfg.Mongo.URI)
	e.str("MONGO_DATABASE", &cfg.Mongo.Database)
	e.str("MONGO_COLLECTION", &cfg.Mongo.Collection)
	e.uint64("MONGO_MAX_POOL_SIZE", &cfg.Mongo.MaxPoolSize)
	e.dur("MONGO_CONNECT_TIMEOUT", &cfg.Mongo.ConnectTimeout)
	e.str("MEAL_TIMEZONE", &cfg.Mongo.Timezone)

	e.str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	e.str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	e.str("OPENAI_SPEECH_MODEL", &cfg.OpenAI.SpeechModel)
	e.str("OPENAI_VOICE", &cfg.OpenAI.Voice)
	e.str("OPENAI_IMAGE_MODEL", &cfg.OpenAI.ImageModel)
	e.str("OPENAI_RESEARCH_MODEL", &cfg.OpenAI.ResearchModel)
	e.str("MEDIA_OUTPUT_DIR", &cfg.OpenAI.OutputDir)

	e.str("WHATSAPP_BASE_URL", &cfg.WhatsApp.BaseURL)
	e.str("WHATSAPP_API_KEY", &cfg.WhatsApp.APIKey)
	e.str("WHATSAPP_SESSION", &cfg.WhatsApp.Session)
	e.integer("WHATSAPP_RATE_PER_SECOND", &cfg.WhatsApp.RatePerSecond)
	e.dur("WHATSAPP_TIMEOUT", &cfg.WhatsApp.Timeout)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) dur(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) int64(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) uint64(key string, dst *uint64) {
	if v, ok := e.get(key); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}
