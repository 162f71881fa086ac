package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"isovoxel/internal/persistence/indexdb"
)

func openRuntimeIndex(worldDir string, disableDB bool, logger *log.Logger) (indexdb.Index, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ISOVOXEL_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "world.sqlite")
		return indexdb.OpenSQLite(dbPath)
	case "postgres", "pg":
		dsn := strings.TrimSpace(os.Getenv("ISOVOXEL_INDEX_DSN"))
		if dsn == "" {
			return nil, fmt.Errorf("ISOVOXEL_INDEX_BACKEND=%s but ISOVOXEL_INDEX_DSN is empty", backend)
		}
		idx, err := indexdb.OpenPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Printf("index backend: postgres")
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported ISOVOXEL_INDEX_BACKEND: %s", backend)
	}
}
