package cli

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
)

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// openDB connects using the flag value, falling back to FLOWDECK_POSTGRES_URL.
func openDB(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("FLOWDECK_POSTGRES_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("no database URL: pass -db-url or set FLOWDECK_POSTGRES_URL")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
