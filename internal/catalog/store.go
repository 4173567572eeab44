// Package catalog persists the price catalog: a singleton row of scalar rates
// plus one row per component price. Saves replace the catalog wholesale.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/vertical.works/internal/pricing"
)

// Component kinds stored in component_prices. The capacity rows hold the
// dimensionless multiplier in the price column.
const (
	componentMachine    = "machine"
	componentController = "controller"
	componentDoor       = "door"
	componentCabin      = "cabin"
	componentCapacity   = "capacity"
)

// ErrNotSeeded indicates the price_config singleton is missing. Startup seed
// is expected to have created it.
var ErrNotSeeded = errors.New("price_config singleton not found")

// Load reads the full catalog from the database.
func Load(db *sql.DB) (pricing.Catalog, error) {
	var cat pricing.Catalog
	err := db.QueryRow(`
		SELECT
			kit_base_price,
			rail_price_per_meter,
			cable_price_per_meter,
			car_door_price,
			installation_base,
			installation_per_stop,
			profit_margin_percent,
			tax_percent,
			currency
		FROM price_config
		WHERE id = 1
	`).Scan(
		&cat.KitBasePrice,
		&cat.RailPricePerMeter,
		&cat.CablePricePerMeter,
		&cat.CarDoorPrice,
		&cat.InstallationBase,
		&cat.InstallationPerStop,
		&cat.ProfitMarginPercent,
		&cat.TaxPercent,
		&cat.Currency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Catalog{}, ErrNotSeeded
	}
	if err != nil {
		return pricing.Catalog{}, fmt.Errorf("query price_config: %w", err)
	}

	cat.Machines = make(map[string]float64)
	cat.Controllers = make(map[string]float64)
	cat.Doors = make(map[string]float64)
	cat.Cabins = make(map[string]float64)
	cat.CapacityMultipliers = make(map[string]float64)

	rows, err := db.Query(`SELECT component, name, price FROM component_prices`)
	if err != nil {
		return pricing.Catalog{}, fmt.Errorf("query component_prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var component, name string
		var price float64
		if err := rows.Scan(&component, &name, &price); err != nil {
			return pricing.Catalog{}, fmt.Errorf("scan component price: %w", err)
		}

		switch component {
		case componentMachine:
			cat.Machines[name] = price
		case componentController:
			cat.Controllers[name] = price
		case componentDoor:
			cat.Doors[name] = price
		case componentCabin:
			cat.Cabins[name] = price
		case componentCapacity:
			cat.CapacityMultipliers[name] = price
		default:
			return pricing.Catalog{}, fmt.Errorf("unknown component kind %q", component)
		}
	}
	if err := rows.Err(); err != nil {
		return pricing.Catalog{}, fmt.Errorf("iterate component prices: %w", err)
	}

	return cat, nil
}

// Save validates the catalog and replaces the stored one wholesale inside a
// single transaction.
func Save(db *sql.DB, cat pricing.Catalog) error {
	if err := cat.Validate(); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin catalog save: %w", err)
	}

	if err := saveTx(tx, cat); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog save: %w", err)
	}
	return nil
}

// SaveTx writes the catalog inside a caller-owned transaction. Used by the
// startup seed.
func SaveTx(tx *sql.Tx, cat pricing.Catalog) error {
	if err := cat.Validate(); err != nil {
		return err
	}
	return saveTx(tx, cat)
}

func saveTx(tx *sql.Tx, cat pricing.Catalog) error {
	_, err := tx.Exec(`
		INSERT INTO price_config (
			id,
			kit_base_price,
			rail_price_per_meter,
			cable_price_per_meter,
			car_door_price,
			installation_base,
			installation_per_stop,
			profit_margin_percent,
			tax_percent,
			currency
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kit_base_price = excluded.kit_base_price,
			rail_price_per_meter = excluded.rail_price_per_meter,
			cable_price_per_meter = excluded.cable_price_per_meter,
			car_door_price = excluded.car_door_price,
			installation_base = excluded.installation_base,
			installation_per_stop = excluded.installation_per_stop,
			profit_margin_percent = excluded.profit_margin_percent,
			tax_percent = excluded.tax_percent,
			currency = excluded.currency,
			updated_at = CURRENT_TIMESTAMP
	`,
		cat.KitBasePrice,
		cat.RailPricePerMeter,
		cat.CablePricePerMeter,
		cat.CarDoorPrice,
		cat.InstallationBase,
		cat.InstallationPerStop,
		cat.ProfitMarginPercent,
		cat.TaxPercent,
		cat.Currency,
	)
	if err != nil {
		return fmt.Errorf("upsert price_config: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM component_prices`); err != nil {
		return fmt.Errorf("clear component_prices: %w", err)
	}

	tables := []struct {
		component string
		prices    map[string]float64
	}{
		{componentMachine, cat.Machines},
		{componentController, cat.Controllers},
		{componentDoor, cat.Doors},
		{componentCabin, cat.Cabins},
		{componentCapacity, cat.CapacityMultipliers},
	}
	for _, tbl := range tables {
		for name, price := range tbl.prices {
			if _, err := tx.Exec(`
				INSERT INTO component_prices (component, name, price)
				VALUES (?, ?, ?)
			`, tbl.component, name, price); err != nil {
				return fmt.Errorf("insert %s price %q: %w", tbl.component, name, err)
			}
		}
	}

	return nil
}

// Reset restores the hard-coded default catalog and returns it.
func Reset(db *sql.DB) (pricing.Catalog, error) {
	def := pricing.DefaultCatalog()
	if err := Save(db, def); err != nil {
		return pricing.Catalog{}, err
	}
	return def, nil
}
