// Package correlation provides the request tagging middleware.
//
// Tag extracts or generates a correlation identifier for every inbound
// request and publishes it, together with the request method and path, into
// the request's correlation context. The context is released when the rest of
// the chain returns, whether it returns normally, with an error, or by
// panicking.
package correlation

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nimburion/validation-app/pkg/correlation"
	"github.com/nimburion/validation-app/pkg/server/router"
)

// DefaultHeader is the inbound and echoed header carrying the identifier.
const DefaultHeader = "correlation-id"

// DefaultPrefix prefixes every generated identifier.
const DefaultPrefix = "gen-"

// Strategy selects how missing identifiers are generated.
type Strategy string

const (
	// StrategyTimestamp generates <prefix><unix millis>.
	StrategyTimestamp Strategy = "timestamp"
	// StrategyUUID generates <prefix><random uuid>.
	StrategyUUID Strategy = "uuid"
)

// Config configures the tagger.
type Config struct {
	Header     string
	Prefix     string
	Strategy   Strategy
	EchoHeader bool

	now func() time.Time
}

// DefaultConfig returns the default tagger configuration.
func DefaultConfig() Config {
	return Config{
		Header:     DefaultHeader,
		Prefix:     DefaultPrefix,
		Strategy:   StrategyTimestamp,
		EchoHeader: true,
	}
}

// ParseStrategy converts a configuration string into a Strategy.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyTimestamp:
		return StrategyTimestamp, true
	case StrategyUUID:
		return StrategyUUID, true
	default:
		return "", false
	}
}

// Tag creates the tagging middleware with default configuration.
func Tag() router.MiddlewareFunc {
	return WithConfig(DefaultConfig())
}

// WithConfig creates the tagging middleware.
func WithConfig(cfg Config) router.MiddlewareFunc {
	cfg = normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()

			// Blank values count as absent; anything else is kept verbatim.
			id := req.Header.Get(cfg.Header)
			if strings.TrimSpace(id) == "" {
				id = cfg.generate()
			}

			ctx, scope := correlation.Begin(req.Context())
			defer scope.Release()

			fields := scope.Fields()
			fields.Set(correlation.KeyCorrelationID, id)
			fields.Set(correlation.KeyMethod, req.Method)
			fields.Set(correlation.KeyPath, req.URL.Path)

			if cfg.EchoHeader {
				c.Response().Header().Set(cfg.Header, id)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func normalize(cfg Config) Config {
	if strings.TrimSpace(cfg.Header) == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if strategy, ok := ParseStrategy(string(cfg.Strategy)); ok {
		cfg.Strategy = strategy
	} else {
		cfg.Strategy = StrategyTimestamp
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

func (cfg Config) generate() string {
	if cfg.Strategy == StrategyUUID {
		return cfg.Prefix + uuid.NewString()
	}
	return cfg.Prefix + strconv.FormatInt(cfg.now().UnixMilli(), 10)
}
