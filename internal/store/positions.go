// Package store persists position snapshots and the append-only trade
// journal in SQLite.
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

// Positions is the durable symbol -> PositionSnapshot store. Single-writer:
// the design assumes one bot instance owns the database file.
type Positions struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenPositions opens (or creates) the position store in WAL mode.
func OpenPositions(dbPath string) (*Positions, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("positions open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		symbol     TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("positions schema: %w", err)
	}

	log.Printf("[store] opened position store at %s", dbPath)
	return &Positions{db: db}, nil
}

// Save upserts one snapshot.
func (p *Positions) Save(pos *model.PositionSnapshot) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("positions marshal %s: %w", pos.Symbol, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.db.Exec(
		`INSERT OR REPLACE INTO positions (symbol, data, updated_at) VALUES (?, ?, ?)`,
		pos.Symbol, string(data), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: positions save %s: %v", model.ErrPersistenceFailure, pos.Symbol, err)
	}
	return nil
}

// Get returns the snapshot for symbol, or (nil, nil) when absent.
func (p *Positions) Get(symbol string) (*model.PositionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var data string
	err := p.db.QueryRow(`SELECT data FROM positions WHERE symbol = ?`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: positions get %s: %v", model.ErrPersistenceFailure, symbol, err)
	}

	var pos model.PositionSnapshot
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return nil, fmt.Errorf("positions unmarshal %s: %w", symbol, err)
	}
	return &pos, nil
}

// All returns every tracked snapshot keyed by symbol.
func (p *Positions) All() (map[string]*model.PositionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.db.Query(`SELECT symbol, data FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("%w: positions load-all: %v", model.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	out := make(map[string]*model.PositionSnapshot)
	for rows.Next() {
		var symbol, data string
		if err := rows.Scan(&symbol, &data); err != nil {
			continue
		}
		var pos model.PositionSnapshot
		if err := json.Unmarshal([]byte(data), &pos); err != nil {
			log.Printf("[store] corrupt position row for %s: %v", symbol, err)
			continue
		}
		out[symbol] = &pos
	}
	return out, rows.Err()
}

// Remove deletes the snapshot for symbol. Removing an absent symbol is not
// an error.
func (p *Positions) Remove(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.db.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("%w: positions remove %s: %v", model.ErrPersistenceFailure, symbol, err)
	}
	return nil
}

// Count returns the number of tracked positions.
func (p *Positions) Count() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: positions count: %v", model.ErrPersistenceFailure, err)
	}
	return n, nil
}

// DB returns the underlying sql.DB for health checks.
func (p *Positions) DB() *sql.DB { return p.db }

// Close closes the database.
func (p *Positions) Close() error { return p.db.Close() }
