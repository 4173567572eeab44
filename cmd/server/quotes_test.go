package main

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func newQuotesTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE quotes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL,
			title TEXT,
			customer_name TEXT,
			notes TEXT,
			elevator_count INTEGER NOT NULL DEFAULT 1,
			stops INTEGER NOT NULL DEFAULT 4,
			capacity TEXT NOT NULL DEFAULT '',
			machine_brand TEXT NOT NULL DEFAULT '',
			controller_brand TEXT NOT NULL DEFAULT '',
			door_brand TEXT NOT NULL DEFAULT '',
			cabin_finish TEXT NOT NULL DEFAULT '',
			margin_percent_snapshot NUMERIC NOT NULL DEFAULT 0,
			tax_percent_snapshot NUMERIC NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'SAR',
			items_json TEXT NOT NULL DEFAULT '[]',
			totals_json TEXT NOT NULL,
			warnings_json TEXT NOT NULL DEFAULT '[]'
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedQuoteRow(t *testing.T, db *sql.DB, reference, createdAt, title, customer, notes, totalsJSON string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO quotes (reference, created_at, title, customer_name, notes, totals_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, reference, createdAt, title, customer, notes, totalsJSON)
	require.NoError(t, err)
}

func TestListQuotesOrdersByDateDescAndReadsTotal(t *testing.T) {
	db := newQuotesTestDB(t)
	srv := &server{db: db, log: zap.NewNop()}

	seedQuoteRow(t, db, "q-1", "2026-01-01 10:00:00", "Primera", "Torre Norte SA", "", `{"final_price": 100.50}`)
	seedQuoteRow(t, db, "q-3", "2026-01-03 12:00:00", "Tercera", "Edificio Central", "", `{"final_price": 300.00}`)
	seedQuoteRow(t, db, "q-2", "2026-01-02 11:00:00", "Segunda", "Hotel Andino", "", `{"final_price": 200.25}`)

	quotes, err := srv.listQuotes("")
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, "Tercera", quotes[0].Title)
	assert.Equal(t, "Segunda", quotes[1].Title)
	assert.Equal(t, "Primera", quotes[2].Title)

	assert.Equal(t, 300.00, quotes[0].Total)
	assert.Equal(t, 200.25, quotes[1].Total)
	assert.Equal(t, 100.50, quotes[2].Total)
}

func TestListQuotesFiltersByTitleCustomerAndNotes(t *testing.T) {
	db := newQuotesTestDB(t)
	srv := &server{db: db, log: zap.NewNop()}

	seedQuoteRow(t, db, "q-1", "2026-01-01 10:00:00", "Torre Norte", "Constructora Sur", "2 ascensores", `{"final_price": 80}`)
	seedQuoteRow(t, db, "q-2", "2026-01-02 10:00:00", "Clínica", "Grupo Torre", "urgente", `{"final_price": 120}`)
	seedQuoteRow(t, db, "q-3", "2026-01-03 10:00:00", "Residencial", "Hotel Plaza", "ampliación torre b", `{"final_price": 160}`)

	byTitle, err := srv.listQuotes("Clínica")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Clínica", byTitle[0].Title)

	// Matches title, customer name and notes alike.
	byTerm, err := srv.listQuotes("orre")
	require.NoError(t, err)
	assert.Len(t, byTerm, 3)
}

func TestListQuotesFallsBackToZeroOnBadTotals(t *testing.T) {
	db := newQuotesTestDB(t)
	srv := &server{db: db, log: zap.NewNop()}

	seedQuoteRow(t, db, "q-1", "2026-01-01 10:00:00", "Rota", "", "", `not-json`)

	quotes, err := srv.listQuotes("")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Zero(t, quotes[0].Total)
}
