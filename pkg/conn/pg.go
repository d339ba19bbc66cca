// Package conn builds PostgreSQL connection pools for the persistence
// engines.
package conn

import (
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
	defaultAppName = "trading-runtime"
)

// Config describes one PostgreSQL target. DSN, when set, wins over the
// individual fields.
type Config struct {
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	User     string            `json:"user"`
	Password string            `json:"password"`
	Database string            `json:"database"`
	SSLMode  string            `json:"sslMode"`
	Params   map[string]string `json:"params"`
	DSN      string            `json:"dsn"`

	// Gorm overrides the ORM session config; default is a silent logger.
	Gorm *gorm.Config `json:"-"`
}

// Client owns one connection pool.
type Client struct {
	cfg Config
	db  *gorm.DB
}

// New opens a pool for the target. The pool is lazy; the first statement
// performs the actual handshake.
func New(cfg Config) (*Client, error) {
	gormCfg := cfg.Gorm
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	}

	db, err := gorm.Open(postgres.Open(cfg.dsn()), gormCfg)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, db: db}, nil
}

// DB returns the underlying gorm handle.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close drains and closes the pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (cfg Config) dsn() string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	target := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		target.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		target.User = url.User(cfg.User)
	}
	if cfg.Database != "" {
		target.Path = "/" + cfg.Database
	}

	query := url.Values{}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	query.Set("sslmode", sslMode)
	query.Set("application_name", defaultAppName)
	for key, value := range cfg.Params {
		if key != "" {
			query.Set(key, value)
		}
	}
	target.RawQuery = query.Encode()

	return target.String()
}
