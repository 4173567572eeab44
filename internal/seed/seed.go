package seed

import (
	"database/sql"
	"fmt"

	"github.com/Simplici0/vertical.works/internal/catalog"
	"github.com/Simplici0/vertical.works/internal/pricing"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way: when no catalog has ever
// been saved, the hard-coded default rate table is written. An operator-edited
// catalog is never touched.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureCatalog(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCatalog(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM price_config WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check price config existence: %w", err)
	}
	if exists {
		return nil
	}

	def := pricing.DefaultCatalog()
	if err := catalog.SaveTx(tx, def); err != nil {
		return fmt.Errorf("insert default catalog: %w", err)
	}

	// Singleton plus one row per component price.
	stats.Inserts = 1 + len(def.Machines) + len(def.Controllers) + len(def.Doors) +
		len(def.Cabins) + len(def.CapacityMultipliers)
	return nil
}
