package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"perpbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is the append-only audit trail of closed trades. Rows are never
// updated or deleted.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenJournal opens (or creates) the trade journal database.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal open: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol      TEXT NOT NULL,
		direction   TEXT NOT NULL,
		result      TEXT NOT NULL,
		closed_by   TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price  REAL NOT NULL,
		pnl_pct     REAL NOT NULL,
		regime      TEXT,
		data        TEXT NOT NULL,
		closed_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_result ON trades(result);
	CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// Append persists one closed trade. The full entry is stored as JSON in the
// data column alongside the indexed columns.
func (j *Journal) Append(entry *model.TradeLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("journal marshal %s: %w", entry.Symbol, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.db.Exec(
		`INSERT INTO trades (symbol, direction, result, closed_by, entry_price, exit_price, pnl_pct, regime, data, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Symbol,
		string(entry.Direction),
		string(entry.Result),
		entry.ClosedBy,
		entry.EntryPrice,
		entry.ExitPrice,
		entry.PnLPct,
		string(entry.MarketRegime),
		string(data),
		entry.ClosedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: journal append %s: %v", model.ErrPersistenceFailure, entry.Symbol, err)
	}
	return nil
}

// Recent returns the last N closed trades, newest first.
func (j *Journal) Recent(limit int) ([]model.TradeLogEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`SELECT data FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: journal query: %v", model.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	var out []model.TradeLogEntry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var entry model.TradeLogEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("[journal] corrupt trade row: %v", err)
			continue
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ResultCounts returns win/loss/liquidated totals per symbol, all symbols
// when symbol is empty.
func (j *Journal) ResultCounts(symbol string) (map[model.TradeResult]int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	query := `SELECT result, COUNT(*) FROM trades GROUP BY result`
	args := []any{}
	if symbol != "" {
		query = `SELECT result, COUNT(*) FROM trades WHERE symbol = ? GROUP BY result`
		args = append(args, symbol)
	}
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: journal counts: %v", model.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	out := make(map[model.TradeResult]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			continue
		}
		out[model.TradeResult(result)] = n
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error { return j.db.Close() }
