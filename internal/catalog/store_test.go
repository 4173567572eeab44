package catalog

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Simplici0/vertical.works/internal/pricing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE price_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			kit_base_price NUMERIC NOT NULL,
			rail_price_per_meter NUMERIC NOT NULL,
			cable_price_per_meter NUMERIC NOT NULL,
			car_door_price NUMERIC NOT NULL,
			installation_base NUMERIC NOT NULL,
			installation_per_stop NUMERIC NOT NULL,
			profit_margin_percent NUMERIC NOT NULL,
			tax_percent NUMERIC NOT NULL,
			currency TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE component_prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			component TEXT NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC NOT NULL,
			UNIQUE(component, name)
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := newTestDB(t)

	def := pricing.DefaultCatalog()
	require.NoError(t, Save(db, def))

	loaded, err := Load(db)
	require.NoError(t, err)

	assert.Equal(t, def.KitBasePrice, loaded.KitBasePrice)
	assert.Equal(t, def.TaxPercent, loaded.TaxPercent)
	assert.Equal(t, def.Currency, loaded.Currency)
	assert.Equal(t, def.Machines, loaded.Machines)
	assert.Equal(t, def.Controllers, loaded.Controllers)
	assert.Equal(t, def.Doors, loaded.Doors)
	assert.Equal(t, def.Cabins, loaded.Cabins)
	assert.Equal(t, def.CapacityMultipliers, loaded.CapacityMultipliers)
}

func TestSaveReplacesWholesale(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Save(db, pricing.DefaultCatalog()))

	edited := pricing.DefaultCatalog()
	edited.KitBasePrice = 9000
	edited.Machines = map[string]float64{"Torin Drive (China)": 8700}

	require.NoError(t, Save(db, edited))

	loaded, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, 9000.0, loaded.KitBasePrice)
	assert.Equal(t, map[string]float64{"Torin Drive (China)": 8700}, loaded.Machines)
}

func TestSaveRejectsInvalidCatalog(t *testing.T) {
	db := newTestDB(t)

	bad := pricing.DefaultCatalog()
	bad.RailPricePerMeter = -5

	err := Save(db, bad)
	require.Error(t, err)

	// Nothing may be written when validation fails.
	_, err = Load(db)
	assert.ErrorIs(t, err, ErrNotSeeded)
}

func TestResetRestoresDefaults(t *testing.T) {
	db := newTestDB(t)

	edited := pricing.DefaultCatalog()
	edited.ProfitMarginPercent = 60
	edited.Cabins["Stainless Steel Hairline"] = 1
	require.NoError(t, Save(db, edited))

	_, err := Reset(db)
	require.NoError(t, err)

	loaded, err := Load(db)
	require.NoError(t, err)

	result, err := pricing.Compute(loaded, pricing.Project{
		ElevatorCount:   1,
		Stops:           4,
		Capacity:        "6 Persons (450kg)",
		MachineBrand:    "Montanari Italy (Gearless)",
		ControllerBrand: "Monarch Nice 3000+",
		DoorBrand:       "Fermator Spain",
		CabinFinish:     "Stainless Steel Hairline",
	})
	require.NoError(t, err)
	assert.InDelta(t, 90474.8125, result.Summary.FinalPrice, 1e-9)
}

func TestLoadWithoutSeed(t *testing.T) {
	db := newTestDB(t)

	_, err := Load(db)
	assert.ErrorIs(t, err, ErrNotSeeded)
}
