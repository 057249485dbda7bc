package authclient

import (
	"os"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config exposes the knobs the client needs. Implement it directly or use
// ClientConfig, which loads from yaml and environment variables.
type Config interface {
	GetBaseURL() string
	GetRoutes() Routes
	GetPublicRoutes() []string
	GetRefreshThreshold() time.Duration
	GetHTTPTimeout() time.Duration
}

// Routes holds the backend auth endpoints, relative to the base URL. The
// paths default to a dj-rest-auth style layout but are fully configurable.
type Routes struct {
	Login                string `yaml:"login" env:"AUTH_ROUTE_LOGIN" env-default:"/auth/login/"`
	Logout               string `yaml:"logout" env:"AUTH_ROUTE_LOGOUT" env-default:"/auth/logout/"`
	Refresh              string `yaml:"refresh" env:"AUTH_ROUTE_REFRESH" env-default:"/auth/token/refresh/"`
	Signup               string `yaml:"signup" env:"AUTH_ROUTE_SIGNUP" env-default:"/auth/registration/"`
	ResendConfirmation   string `yaml:"resend_confirmation" env:"AUTH_ROUTE_RESEND" env-default:"/auth/registration/resend-email/"`
	ConfirmEmail         string `yaml:"confirm_email" env:"AUTH_ROUTE_CONFIRM" env-default:"/auth/registration/verify-email/"`
	PasswordReset        string `yaml:"password_reset" env:"AUTH_ROUTE_PASSWORD_RESET" env-default:"/auth/password/reset/"`
	PasswordResetConfirm string `yaml:"password_reset_confirm" env:"AUTH_ROUTE_PASSWORD_RESET_CONFIRM" env-default:"/auth/password/reset/confirm/"`
	PasswordChange       string `yaml:"password_change" env:"AUTH_ROUTE_PASSWORD_CHANGE" env-default:"/auth/password/change/"`
}

// ClientConfig is the concrete Config loaded by LoadConfig.
type ClientConfig struct {
	BaseURL          string        `yaml:"base_url" env:"AUTH_BASE_URL" env-required:"true"`
	Routes           Routes        `yaml:"routes"`
	PublicRoutes     []string      `yaml:"public_routes" env:"AUTH_PUBLIC_ROUTES"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env:"AUTH_REFRESH_THRESHOLD" env-default:"10m"`
	HTTPTimeout      time.Duration `yaml:"http_timeout" env:"AUTH_HTTP_TIMEOUT" env-default:"30s"`
	StorageDSN       string        `yaml:"storage_dsn" env:"AUTH_STORAGE_DSN" env-default:"auth_client.db"`
}

var _ Config = (*ClientConfig)(nil)

func (c *ClientConfig) GetBaseURL() string { return c.BaseURL }
func (c *ClientConfig) GetRoutes() Routes  { return c.Routes }

// GetPublicRoutes returns the routes that never carry a bearer token. The
// configured list is merged with the routes that are public by construction:
// login, signup, refresh, both password reset steps, resend and confirm.
func (c *ClientConfig) GetPublicRoutes() []string {
	public := []string{
		c.Routes.Login,
		c.Routes.Signup,
		c.Routes.Refresh,
		c.Routes.ResendConfirmation,
		c.Routes.ConfirmEmail,
		c.Routes.PasswordReset,
		c.Routes.PasswordResetConfirm,
	}
	return append(public, c.PublicRoutes...)
}

func (c *ClientConfig) GetRefreshThreshold() time.Duration { return c.RefreshThreshold }
func (c *ClientConfig) GetHTTPTimeout() time.Duration      { return c.HTTPTimeout }

// LoadConfig reads configuration with the following precedence: the explicit
// path argument, the CONFIG_PATH environment variable, a config.yaml in the
// working directory, then environment variables alone.
func LoadConfig(path string) (*ClientConfig, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	cfg := &ClientConfig{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to read config file")
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to read config from environment")
	}

	return cfg, nil
}
