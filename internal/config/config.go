package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the process-wide configuration, resolved once at startup and
// passed down explicitly.
type Config struct {
	HTTPAddr string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	PostgresDSN string

	BotToken  string
	WebAppURL string

	AIServiceURL string

	CookieSecret   string
	InternalSecret string

	CacheTTLMinutes  int
	DialogTTLHours   int
	PremiumPriceXTR  int
	SubscribePayload string
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// FromEnv reads the configuration from the environment, falling back to
// development defaults where a value is optional.
func FromEnv() *Config {
	return &Config{
		HTTPAddr: getenv("HTTP_ADDR", ":3001"),

		RedisHost:     getenv("REDIS_HOST", "localhost"),
		RedisPort:     getenv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		RedisPrefix:   getenv("REDIS_PREFIX", "morpheus"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		BotToken:  os.Getenv("BOT_TOKEN"),
		WebAppURL: getenv("WEB_APP_URL", "https://morpheusantihype.icu"),

		AIServiceURL: getenv("AI_SERVICE_URL", "http://localhost:3002"),

		CookieSecret:   getenv("COOKIE_SECRET", "dev-secret-change-me"),
		InternalSecret: os.Getenv("INTERNAL_SERVICE_SECRET"),

		CacheTTLMinutes:  getenvInt("CACHE_TTL_MINUTES", 60),
		DialogTTLHours:   getenvInt("DIALOG_TTL_HOURS", 24),
		PremiumPriceXTR:  getenvInt("SUB_PRICE_STARS", 150),
		SubscribePayload: getenv("SUB_PAYLOAD", "sub_premium"),
	}
}

func getenv(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// LoadEnvFile reads KEY=VALUE pairs into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 {
			if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
				v = v[1 : len(v)-1]
			}
		}
		if _, exists := os.LookupEnv(k); exists {
			continue
		}
		_ = os.Setenv(k, v)
	}
	return sc.Err()
}
