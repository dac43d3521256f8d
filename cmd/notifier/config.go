package main

import (
	"time"

	"github.com/docmatch/notifier/handler"
	"github.com/docmatch/notifier/pkg/httpserver"
	"github.com/docmatch/notifier/pkg/intake"
	"github.com/docmatch/notifier/pkg/jwt"
	"github.com/docmatch/notifier/pkg/logger"
	"github.com/docmatch/notifier/pkg/pg"
	"github.com/docmatch/notifier/pkg/ratelimiter"
	"github.com/docmatch/notifier/pkg/redis"
	"github.com/docmatch/notifier/pkg/stream"
)

// Config is the whole process configuration, read from the environment
// and an optional .env file.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"notifier"`

	// RolesFile is a YAML role definition; built-in roles are used when empty.
	RolesFile string `env:"RBAC_ROLES_FILE"`

	// Seed users for in-memory mode, as id:role pairs ("1:admin,2:doctor").
	DevUsers map[string]string `env:"DEV_USERS" envSeparator:"," envKeyValSeparator:":"`

	MembershipCache    bool          `env:"MEMBERSHIP_CACHE_ENABLED" envDefault:"false"`
	MembershipCacheTTL time.Duration `env:"MEMBERSHIP_CACHE_TTL" envDefault:"1m"`

	DispatchConcurrency int `env:"DISPATCH_CONCURRENCY" envDefault:"16"`

	Log             logger.Config
	HTTP            httpserver.Config
	API             handler.Config
	JWT             jwt.Config
	Stream          stream.Config
	StreamRateLimit ratelimiter.Config
	PG              pg.Config
	Redis           redis.Config
	Intake          intake.Config
}
