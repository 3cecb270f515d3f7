package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLRepository connects to MySQL and applies migrations. The DSN must
// set parseTime=true and multiStatements=true.
func NewMySQLRepository(dsn string) (*SQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if _, err := RunMigrations(db, MySQL); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithField("component", "repository").Info("MySQL repository initialized")
	return newSQLRepository(db, MySQL), nil
}
