package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"

	"trips/entity"
	"trips/ratelimit"
)

type Config struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"address the HTTP server listens on"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" description:"postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"redis address for messaging and rate limiting"`
	GatewayAddr    string `long:"gateway-addr" env:"GATEWAY_ADDR" description:"payments and notifications gateway, logs instead when empty"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"jaeger collector endpoint, derived from the gateway when empty"`
	JWTSecret      string `long:"jwt-secret" env:"JWT_SECRET" description:"HS256 secret for bearer tokens"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error"`

	IssueToken string `long:"issue-token" description:"print a bearer token for <user>:<role> and exit"`

	ActivitySweepInterval time.Duration `long:"activity-sweep-interval" env:"ACTIVITY_SWEEP_INTERVAL" default:"1m" description:"how often activities are moved to ongoing and completed"`

	RateLimit RateLimitConfig `group:"Rate limiting" namespace:"rate-limit" env-namespace:"RATE_LIMIT"`
	Tickets   TicketsConfig   `group:"Tickets" namespace:"tickets" env-namespace:"TICKETS"`
}

type RateLimitConfig struct {
	Disabled      bool          `long:"disabled" env:"DISABLED" description:"admit every request"`
	Window        time.Duration `long:"window" env:"WINDOW" default:"1m"`
	MaxPerWindow  int           `long:"max" env:"MAX" default:"60" description:"requests admitted per client in one window"`
	Backend       string        `long:"backend" env:"BACKEND" default:"memory" choice:"memory" choice:"redis"`
	PruneInterval time.Duration `long:"prune-interval" env:"PRUNE_INTERVAL" default:"5m" description:"how often expired in-memory windows are dropped"`
}

func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{Window: c.Window, MaxPerWindow: c.MaxPerWindow}
}

type TicketsConfig struct {
	SigningSecret string `long:"signing-secret" env:"SIGNING_SECRET" description:"HMAC secret for ticket signatures, tickets are unsigned when empty"`
}

// Load reads the configuration from args and the environment. Flags win over environment variables.
func Load(args []string) (Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.IssueToken != "" {
		if c.JWTSecret == "" {
			return fmt.Errorf("jwt secret is required to issue tokens")
		}
		_, err := c.TokenIdentity()
		return err
	}

	if c.PostgresURL == "" {
		return fmt.Errorf("postgres url is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxPerWindow <= 0 {
		return fmt.Errorf("rate limit window and max must be positive")
	}
	if c.RateLimit.Backend == "memory" && c.RateLimit.PruneInterval <= 0 {
		return fmt.Errorf("rate limit prune interval must be positive")
	}
	if c.ActivitySweepInterval <= 0 {
		return fmt.Errorf("activity sweep interval must be positive")
	}

	return nil
}

// TokenIdentity parses the --issue-token value.
func (c Config) TokenIdentity() (entity.Identity, error) {
	userID, role, ok := strings.Cut(c.IssueToken, ":")
	if !ok || userID == "" {
		return entity.Identity{}, fmt.Errorf("issue-token must look like <user>:<role>, got %q", c.IssueToken)
	}

	identity := entity.Identity{UserID: userID, Role: entity.Role(strings.ToUpper(role))}
	switch identity.Role {
	case entity.RoleStudent, entity.RoleOrganizer, entity.RoleAdmin:
		return identity, nil
	default:
		return entity.Identity{}, fmt.Errorf("unknown role %q", role)
	}
}
