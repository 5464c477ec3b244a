package db

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bhuvan-tech-creator/MedSenseEdge-sub000/internal/statepaths"
)

type SQLiteConfig struct {
	BusyTimeoutMs int
	WAL           bool
	ForeignKeys   bool
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Driver      string
	DSN         string
	Pool        PoolConfig
	SQLite      SQLiteConfig
	AutoMigrate bool
}

func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "",
		Pool: PoolConfig{
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 0,
		},
		SQLite: SQLiteConfig{
			BusyTimeoutMs: 5000,
			WAL:           true,
			ForeignKeys:   true,
		},
		AutoMigrate: true,
	}
}

func ResolveSQLiteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn != "" {
		return dsn, nil
	}

	stateDB := filepath.Join(statepaths.StateDir(), "medsense.sqlite")
	localDB := filepath.Clean("./medsense.sqlite")

	// Precedence:
	// 1) existing state-dir database
	if _, err := os.Stat(stateDB); err == nil {
		return stateDB, nil
	}
	// 2) existing ./medsense.sqlite
	if _, err := os.Stat(localDB); err == nil {
		return localDB, nil
	}
	// 3) create + use the state-dir database
	if _, err := statepaths.EnsureStateDir(); err != nil {
		return "", err
	}
	return stateDB, nil
}
