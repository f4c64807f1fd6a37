package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvDevelopment selects local-development behavior: fixed local
// checkout base URL, relaxed cookie security, noop fallbacks for
// unconfigured providers.
const EnvDevelopment = "development"

// Config carries all process configuration, read once at startup and
// passed into components explicitly.
type Config struct {
	Env    string `env:"ACADEMY_ENV" env-default:"development"`
	Addr   string `env:"ACADEMY_ADDR" env-default:":8080"`
	DBPath string `env:"ACADEMY_DB_PATH" env-default:"academy.db"`

	// Checkout redirect base URL chain, in precedence order. See
	// ResolveBaseURL in the orchestrators package.
	PublicBaseURL string `env:"ACADEMY_PUBLIC_BASE_URL"`
	DeployURL     string `env:"ACADEMY_DEPLOY_URL"` // platform-provided, may lack a scheme

	StripeSecretKey string `env:"ACADEMY_STRIPE_SECRET_KEY"`

	ResendKey string `env:"ACADEMY_RESEND_KEY"`
	EmailFrom string `env:"ACADEMY_EMAIL_FROM" env-default:"Kovász Academy <noreply@kovaszakademia.hu>"`
	ReplyTo   string `env:"ACADEMY_REPLY_TO" env-default:"info@kovaszakademia.hu"`

	CSRFKey       string `env:"ACADEMY_CSRF_KEY"` // 64 hex chars; random per start in development
	AdminEmail    string `env:"ACADEMY_ADMIN_EMAIL" env-default:"info@kovaszakademia.hu"`
	AdminPassword string `env:"ACADEMY_ADMIN_PASSWORD" env-default:"friss kovasz minden nap"`

	SlowQueryMs int `env:"ACADEMY_SLOW_QUERY_MS" env-default:"50"`
}

// Load reads configuration from the environment.
// POST: Returns a fully populated Config or an error
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read config from environment: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the process runs in deployed operation.
// INVARIANT: Config fields are not mutated
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsLocal reports local-development mode; the checkout flow uses a
// fixed localhost base URL instead of the override chain in this mode.
// INVARIANT: Config fields are not mutated
func (c Config) IsLocal() bool {
	return c.Env == EnvDevelopment
}
