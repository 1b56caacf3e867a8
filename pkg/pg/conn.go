package pg

import (
	"database/sql"
	"fmt"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver   string `env:"DRIVER"`
	User     string `env:"USER"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	Password string `env:"PASSWORD"`
	Database string `env:"DBNAME"`
	// Path is the sqlite file, ":memory:" for a throwaway database.
	Path string `env:"PATH"`
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.Host, c.User, c.Password, c.Database, c.Port)
}

func (c Config) driver() string {
	if c.Driver == "" {
		return DriverPostgres
	}
	return c.Driver
}

func newSqlConnection(config Config) (*sql.DB, error) {
	if config.driver() == DriverSQLite {
		return sql.Open("sqlite3", config.Path)
	}
	return sql.Open("postgres", config.dsn())
}
