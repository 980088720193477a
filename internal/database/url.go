package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lnup/eventscout/internal/config"
)

// ErrNotConfigured is returned by BuildURL when neither a URL nor a Cloud SQL
// instance is configured. Callers fall back to in-memory stores.
var ErrNotConfigured = fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")

// BuildURL returns a connection string for the configured database. An explicit
// URL wins; otherwise a Unix socket DSN under /cloudsql is assembled from the
// instance connection name.
func BuildURL(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL != "" {
		return cfg.URL, nil
	}
	if cfg.InstanceConnectionName == "" {
		return "", ErrNotConfigured
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	socket := "/cloudsql/" + cfg.InstanceConnectionName
	if cfg.Password == "" {
		// IAM authentication
		return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", socket, cfg.User, cfg.Name), nil
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
		socket, cfg.User, cfg.Password, cfg.Name), nil
}

// RedactURL masks the password in a URL or key/value DSN for logging.
func RedactURL(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil || u.User == nil {
			return dsn
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
		return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
