package mssql

import (
	"fmt"
	"net/url"
)

// Config contains SQL Server connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Encrypt  string // "disable", "false", "true" (default)
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// Validate checks that required fields are present and fills defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port == 0 {
		c.Port = DefaultPort()
	}
	if c.Encrypt == "" {
		c.Encrypt = "true"
	}
	return nil
}

// ConnString builds a go-mssqldb connection URL.
func (c *Config) ConnString() string {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	q := url.Values{}
	q.Set("database", c.Database)
	q.Set("encrypt", c.Encrypt)
	u.RawQuery = q.Encode()
	return u.String()
}
