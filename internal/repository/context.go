package repository

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/tidewire/tidewire/internal/sysconfig"
)

const maskedValue = "*****"

// Context is the repository configuration taken from one configuration
// snapshot. It is immutable.
type Context struct {
	provider       string
	createSchema   bool
	jdbcURL        string
	jdbcDriver     string
	jdbcUser       string
	jdbcPassword   string
	jdbcProperties map[string]string
}

// NewContext reads the repository keys of snap.
func NewContext(snap *sysconfig.Snapshot) *Context {
	sub := snap.Sub(sysconfig.RepositoryPrefix)

	props := make(map[string]string)
	for k, v := range sub {
		if name, ok := strings.CutPrefix(k, sysconfig.RepositorySuffixJDBCProps); ok && name != "" {
			props[name] = v
		}
	}

	createSchema := false
	if raw := strings.TrimSpace(sub[sysconfig.RepositorySuffixCreateSchema]); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			slog.Warn("ignoring invalid boolean", "key", sysconfig.RepositoryPrefix+sysconfig.RepositorySuffixCreateSchema, "value", raw)
		}
		createSchema = v
	}

	return &Context{
		provider:       strings.TrimSpace(sub[sysconfig.RepositorySuffixProvider]),
		createSchema:   createSchema,
		jdbcURL:        strings.TrimSpace(sub[sysconfig.RepositorySuffixJDBCURL]),
		jdbcDriver:     strings.TrimSpace(sub[sysconfig.RepositorySuffixJDBCDriver]),
		jdbcUser:       strings.TrimSpace(sub[sysconfig.RepositorySuffixJDBCUser]),
		jdbcPassword:   sub[sysconfig.RepositorySuffixJDBCPassword],
		jdbcProperties: props,
	}
}

func (c *Context) Provider() string     { return c.provider }
func (c *Context) CreateSchema() bool   { return c.createSchema }
func (c *Context) JDBCURL() string      { return c.jdbcURL }
func (c *Context) JDBCDriver() string   { return c.jdbcDriver }
func (c *Context) JDBCUser() string     { return c.jdbcUser }
func (c *Context) JDBCPassword() string { return c.jdbcPassword }

// JDBCProperties returns a copy of the raw connection properties.
func (c *Context) JDBCProperties() map[string]string {
	return maps.Clone(c.jdbcProperties)
}

func (c *Context) maskedProperties() string {
	keys := slices.Sorted(maps.Keys(c.jdbcProperties))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := c.jdbcProperties[k]
		if strings.EqualFold(k, "password") {
			v = maskedValue
		}
		parts = append(parts, k+"="+v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (c *Context) String() string {
	return fmt.Sprintf("provider=%s, create-schema=%t, conn-url=%s, driver=%s, user=%s, password=%s, jdbc-props=%s",
		c.provider, c.createSchema, c.jdbcURL, c.jdbcDriver, c.jdbcUser, maskedValue, c.maskedProperties())
}

func (c *Context) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", c.provider),
		slog.Bool("create_schema", c.createSchema),
		slog.String("conn_url", c.jdbcURL),
		slog.String("driver", c.jdbcDriver),
		slog.String("user", c.jdbcUser),
		slog.String("password", maskedValue),
		slog.String("jdbc_props", c.maskedProperties()),
	)
}
