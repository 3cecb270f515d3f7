package repository

import (
	"fmt"
	"strings"
)

// Open connects to the backend named by dbType ("sqlite", "postgres" or
// "mysql", case-insensitive, with the aliases config accepts) and applies its
// migrations. For sqlite dsn is a file path.
func Open(dbType, dsn string) (*SQLRepository, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "sqlite", "sqlite3", "":
		return NewSQLiteRepository(dsn)
	case "postgres", "postgresql", "pg":
		return NewPostgresRepository(dsn)
	case "mysql":
		return NewMySQLRepository(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}
}
