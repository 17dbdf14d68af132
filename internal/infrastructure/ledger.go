package infrastructure

import (
	"fmt"

	"github.com/yourusername/vidharvest/internal/domain"
)

// OpenLedger opens the ledger backend selected by configuration.
// The sqlite backend returns the store itself so callers can share it for run history.
func OpenLedger(config domain.LedgerConfig) (domain.Ledger, error) {
	switch config.Backend {
	case domain.LedgerFile, "":
		return NewFileLedger(config.Path, config.Sync)
	case domain.LedgerSQLite:
		return NewSQLiteStore(config.DatabasePath)
	case domain.LedgerRedis:
		client := NewRedisClient(config.RedisAddr)
		ledger, err := NewRedisLedger(client, config.RedisKey)
		if err != nil {
			client.Close()
			return nil, err
		}
		return ledger, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", config.Backend)
	}
}
