package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

type Config struct {
	SecretKey string `env:"SECRET_KEY" envDefault:"dev"`

	// Database
	MySQLHost         string `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLUser         string `env:"MYSQL_USER" envDefault:"flask_user"`
	MySQLPassword     string `env:"MYSQL_PASSWORD" envDefault:"flask_password"`
	MySQLRootPassword string `env:"MYSQL_ROOT_PASSWORD"`
	MySQLDatabase     string `env:"MYSQL_DATABASE" envDefault:"flask_app"`
	// Only read by the adminer container; kept so a shared .env parses cleanly.
	AdminerDefaultServer string `env:"ADMINER_DEFAULT_SERVER"`

	// AI provider (any OpenAI-compatible endpoint)
	AIModel      string        `env:"AI_MODEL" envDefault:"anthropic/claude-3-7-sonnet-20250219"`
	AIBaseURL    string        `env:"AI_BASE_URL" envDefault:"https://www.google.com"`
	AIAPIKey     string        `env:"AI_API_KEY" envDefault:"your_api_key_here"`
	AITimeout    time.Duration `env:"AI_TIMEOUT" envDefault:"10s"`
	AIMaxRetries int           `env:"AI_MAX_RETRIES" envDefault:"3"`
	PromptsFile  string        `env:"AI_PROMPTS_FILE" envDefault:"prompts/agent.yaml"`

	// HTTP server. The FLASK_* names are what the existing deployment sets.
	FlaskApp      string `env:"FLASK_APP"`
	Host          string `env:"FLASK_HOST" envDefault:"0.0.0.0"`
	Port          string `env:"FLASK_PORT" envDefault:"5000"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
	Debug         bool

	// MCP SQL server
	MCPHost     string `env:"MCP_SERVER_HOST" envDefault:"0.0.0.0"`
	MCPPort     string `env:"MCP_SERVER_PORT" envDefault:"6000"`
	MCPReadOnly bool   `env:"MCP_READ_ONLY" envDefault:"true"`

	// Chat. ChatTimeout bounds one /chat reply on the server, tool calls
	// included; the widget client always waits longer than that.
	ChatTimeout       time.Duration `env:"CHAT_TIMEOUT" envDefault:"55s"`
	ChatServerURL     string        `env:"CHAT_SERVER_URL" envDefault:"http://localhost:5000"`
	ChatClientTimeout time.Duration `env:"CHAT_CLIENT_TIMEOUT" envDefault:"60s"`
}

// chatClientSlack is how much longer the widget waits than the server.
const chatClientSlack = 5 * time.Second

func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Debug = getEnvBoolDefault("FLASK_DEBUG", true)
	cfg.alignChatTimeouts()
	if cfg.AIAPIKey == "" || cfg.AIAPIKey == "your_api_key_here" {
		log.Warn("AI_API_KEY is not set; chat replies will fail until provided")
	}
	if cfg.SecretKey == "dev" {
		log.Warn("SECRET_KEY is the development default; session cookies are not secure")
	}
	return cfg, nil
}

// alignChatTimeouts keeps the client from giving up on a reply the server is
// still allowed to produce.
func (c *Config) alignChatTimeouts() {
	if c.ChatTimeout <= 0 {
		return
	}
	if floor := c.ChatTimeout + chatClientSlack; c.ChatClientTimeout < floor {
		log.WithFields(log.Fields{
			"chat_timeout":   c.ChatTimeout.String(),
			"client_timeout": c.ChatClientTimeout.String(),
			"raised_to":      floor.String(),
		}).Warn("config.chat_client_timeout.raised")
		c.ChatClientTimeout = floor
	}
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// MCPAddr is the listen address of the MCP SQL server.
func (c Config) MCPAddr() string {
	return net.JoinHostPort(c.MCPHost, c.MCPPort)
}

// MySQLDSN builds a go-sql-driver DSN. MYSQL_HOST may carry an explicit port.
func (c Config) MySQLDSN() string {
	addr := c.MySQLHost
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "3306")
	}
	mc := mysql.NewConfig()
	mc.User = c.MySQLUser
	mc.Passwd = c.MySQLPassword
	mc.Net = "tcp"
	mc.Addr = addr
	mc.DBName = c.MySQLDatabase
	mc.ParseTime = true
	// UPDATEs report matched rows, so saving unchanged values is not a miss.
	mc.ClientFoundRows = true
	mc.MultiStatements = false
	return mc.FormatDSN()
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
