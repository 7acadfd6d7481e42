package database

import (
	"net/url"
	"os"
)

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

func NewDBConfigFromEnv() DBConfig {
	ssl := os.Getenv("DB_SSLMODE")
	if ssl == "" {
		// для локальной разработки
		ssl = "disable"
	}
	return DBConfig{
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  ssl,
	}
}

func (c DBConfig) Complete() bool {
	return c.User != "" && c.Host != "" && c.Port != "" && c.DBName != ""
}

// DSN создаёт корректный DSN (URL encoded)
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
