package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Category classifies a line item as supplied material or installation labor.
type Category string

const (
	CategoryMaterial Category = "material"
	CategoryLabor    Category = "labor"
)

// Business constants of the estimation model. They are assumptions agreed with
// the installation team, not derived engineering values.
const (
	// metersPerStop estimates the vertical travel contributed by each stop.
	metersPerStop = 3.5
	// railRunsPerShaft covers the car-side and counterweight-side rail runs.
	railRunsPerShaft = 2
	// cableSlackFactor is the looping allowance for the traveling cable.
	cableSlackFactor = 1.5
)

// DefaultTaxPercent is the VAT rate applied when a catalog does not override it.
const DefaultTaxPercent = 15.0

// DefaultCurrency labels every amount produced by the engine.
const DefaultCurrency = "SAR"

// Catalog is the rate table every estimate is priced against. It is treated as
// an immutable value for the duration of one calculation; persistence is the
// caller's concern.
type Catalog struct {
	KitBasePrice        float64 `json:"kit_base_price"`
	RailPricePerMeter   float64 `json:"rail_price_per_meter"`
	CablePricePerMeter  float64 `json:"cable_price_per_meter"`
	CarDoorPrice        float64 `json:"car_door_price"`
	InstallationBase    float64 `json:"installation_base"`
	InstallationPerStop float64 `json:"installation_per_stop"`
	ProfitMarginPercent float64 `json:"profit_margin_percent"`
	TaxPercent          float64 `json:"tax_percent"`
	Currency            string  `json:"currency"`

	Machines            map[string]float64 `json:"machines"`
	Controllers         map[string]float64 `json:"controllers"`
	Doors               map[string]float64 `json:"doors"`
	Cabins              map[string]float64 `json:"cabins"`
	CapacityMultipliers map[string]float64 `json:"capacity_multipliers"`
}

// DefaultCatalog returns the hard-coded baseline rate table.
func DefaultCatalog() Catalog {
	return Catalog{
		KitBasePrice:        8500,
		RailPricePerMeter:   180,
		CablePricePerMeter:  45,
		CarDoorPrice:        2500,
		InstallationBase:    6000,
		InstallationPerStop: 800,
		ProfitMarginPercent: 25,
		TaxPercent:          DefaultTaxPercent,
		Currency:            DefaultCurrency,
		Machines: map[string]float64{
			"Montanari Italy (Gearless)": 14500,
			"Sicor Italy (Gearless)":     13800,
			"Alberto Sassi (Geared)":     11000,
			"Torin Drive (China)":        8500,
			"Hydraulic System (Italy)":   18000,
		},
		Controllers: map[string]float64{
			"Monarch Nice 3000+": 6500,
			"Step System":        5800,
			"INVT System":        4200,
		},
		Doors: map[string]float64{
			"Fermator Spain": 1800,
			"Selcom Italy":   2200,
			"Local Standard": 1200,
		},
		Cabins: map[string]float64{
			"Stainless Steel Hairline": 6000,
			"Gold / Etched Design":     9500,
			"Panoramic (Glass)":        18000,
		},
		CapacityMultipliers: map[string]float64{
			"4 Persons (320kg)":   1.0,
			"6 Persons (450kg)":   1.1,
			"8 Persons (630kg)":   1.25,
			"10 Persons (800kg)":  1.4,
			"13 Persons (1000kg)": 1.6,
		},
	}
}

// Project contains the per-quote inputs selected by the operator.
type Project struct {
	ElevatorCount   int    `json:"elevator_count"`
	Stops           int    `json:"stops"`
	Capacity        string `json:"capacity"`
	MachineBrand    string `json:"machine_brand"`
	ControllerBrand string `json:"controller_brand"`
	DoorBrand       string `json:"door_brand"`
	CabinFinish     string `json:"cabin_finish"`
}

// LineItem is one priced row of the cost breakdown. Items are never mutated
// after creation and their emission order is a display contract.
type LineItem struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    Category `json:"category"`
	UnitPrice   float64  `json:"unit_price"`
	Quantity    int      `json:"quantity"`
	Total       float64  `json:"total"`
	Description string   `json:"description"`
}

// Summary contains the roll-up figures of an estimate. No intermediate
// rounding happens anywhere; only display formatting rounds.
type Summary struct {
	MaterialCost float64 `json:"material_cost"`
	LaborCost    float64 `json:"labor_cost"`
	CostTotal    float64 `json:"cost_total"`
	MarginAmount float64 `json:"margin_amount"`
	PreTaxPrice  float64 `json:"pre_tax_price"`
	TaxAmount    float64 `json:"tax_amount"`
	FinalPrice   float64 `json:"final_price"`
}

// Result groups the full output of one estimation run.
type Result struct {
	Items    []LineItem `json:"items"`
	Summary  Summary    `json:"summary"`
	Warnings []string   `json:"warnings"`
	Currency string     `json:"currency"`
}

// ValidationError reports a numeric field that failed to parse or violated a
// sign requirement. It is raised before any line item is emitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConfigurationError reports a project field that references a key absent from
// the corresponding catalog table. Lookups are strict: a missing brand fails
// the calculation instead of silently pricing as zero.
type ConfigurationError struct {
	Table string
	Key   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%q no existe en la tabla %s", e.Key, e.Table)
}

// Validate checks that every rate in the catalog is a finite, correctly signed
// number and that no price table is empty.
func (c Catalog) Validate() error {
	scalars := []struct {
		field string
		value float64
	}{
		{"kit_base_price", c.KitBasePrice},
		{"rail_price_per_meter", c.RailPricePerMeter},
		{"cable_price_per_meter", c.CablePricePerMeter},
		{"car_door_price", c.CarDoorPrice},
		{"installation_base", c.InstallationBase},
		{"installation_per_stop", c.InstallationPerStop},
		{"profit_margin_percent", c.ProfitMarginPercent},
		{"tax_percent", c.TaxPercent},
	}
	for _, s := range scalars {
		if err := checkAmount(s.field, s.value); err != nil {
			return err
		}
	}

	tables := []struct {
		name   string
		prices map[string]float64
	}{
		{"machines", c.Machines},
		{"controllers", c.Controllers},
		{"doors", c.Doors},
		{"cabins", c.Cabins},
	}
	for _, tbl := range tables {
		if len(tbl.prices) == 0 {
			return &ValidationError{Field: tbl.name, Reason: "no puede estar vacía"}
		}
		for name, price := range tbl.prices {
			if err := checkAmount(tbl.name+"."+name, price); err != nil {
				return err
			}
		}
	}

	if len(c.CapacityMultipliers) == 0 {
		return &ValidationError{Field: "capacity_multipliers", Reason: "no puede estar vacía"}
	}
	for name, mult := range c.CapacityMultipliers {
		field := "capacity_multipliers." + name
		if math.IsNaN(mult) || math.IsInf(mult, 0) {
			return &ValidationError{Field: field, Reason: "debe ser numérico"}
		}
		if mult <= 0 {
			return &ValidationError{Field: field, Reason: "debe ser mayor a 0"}
		}
	}

	return nil
}

func checkAmount(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &ValidationError{Field: field, Reason: "debe ser numérico"}
	}
	if value < 0 {
		return &ValidationError{Field: field, Reason: "debe ser mayor o igual a 0"}
	}
	return nil
}

// Validate checks the counts of a project. Brand and capacity keys are
// checked against the catalog during computation, where the tables live.
func (p Project) Validate() error {
	if p.ElevatorCount < 1 {
		return &ValidationError{Field: "elevator_count", Reason: "debe ser al menos 1"}
	}
	if p.Stops < 2 {
		return &ValidationError{Field: "stops", Reason: "debe ser al menos 2"}
	}
	return nil
}

// ComputeLineItems prices a project against a catalog and returns the ordered
// cost breakdown: mechanical kit, machine, controller, doors, cabin, labor.
func ComputeLineItems(cat Catalog, p Project) ([]LineItem, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	capacityMult, ok := cat.CapacityMultipliers[p.Capacity]
	if !ok {
		return nil, &ConfigurationError{Table: "capacity_multipliers", Key: p.Capacity}
	}
	machinePrice, ok := cat.Machines[p.MachineBrand]
	if !ok {
		return nil, &ConfigurationError{Table: "machines", Key: p.MachineBrand}
	}
	controllerPrice, ok := cat.Controllers[p.ControllerBrand]
	if !ok {
		return nil, &ConfigurationError{Table: "controllers", Key: p.ControllerBrand}
	}
	landingDoorPrice, ok := cat.Doors[p.DoorBrand]
	if !ok {
		return nil, &ConfigurationError{Table: "doors", Key: p.DoorBrand}
	}
	cabinPrice, ok := cat.Cabins[p.CabinFinish]
	if !ok {
		return nil, &ConfigurationError{Table: "cabins", Key: p.CabinFinish}
	}

	count := p.ElevatorCount
	stops := float64(p.Stops)
	travelHeight := stops * metersPerStop

	railsCost := travelHeight * cat.RailPricePerMeter * railRunsPerShaft * capacityMult
	cablesCost := travelHeight * cableSlackFactor * cat.CablePricePerMeter
	mechanicalUnit := cat.KitBasePrice + railsCost + cablesCost

	machineUnit := machinePrice * capacityMult
	doorsUnit := stops*landingDoorPrice + cat.CarDoorPrice
	cabinUnit := cabinPrice * capacityMult
	laborUnit := cat.InstallationBase + stops*cat.InstallationPerStop

	items := []LineItem{
		{
			ID:          "mech",
			Label:       "Kit mecánico y rieles",
			Category:    CategoryMaterial,
			UnitPrice:   mechanicalUnit,
			Description: fmt.Sprintf("Incluye rieles (%dm), cables y paracaídas", int(math.Ceil(travelHeight))),
		},
		{
			ID:          "machine",
			Label:       "Máquina de tracción: " + p.MachineBrand,
			Category:    CategoryMaterial,
			UnitPrice:   machineUnit,
			Description: "Potencia acorde a la capacidad " + p.Capacity,
		},
		{
			ID:          "control",
			Label:       "Sistema de control: " + p.ControllerBrand,
			Category:    CategoryMaterial,
			UnitPrice:   controllerPrice,
			Description: "Incluye tablero principal, variador y cableado",
		},
		{
			ID:          "doors",
			Label:       fmt.Sprintf("Sistema de puertas (%s)", p.DoorBrand),
			Category:    CategoryMaterial,
			UnitPrice:   doorsUnit,
			Description: fmt.Sprintf("%d puertas de piso + 1 puerta de cabina automática", p.Stops),
		},
		{
			ID:          "cabin",
			Label:       "Cabina y decoración: " + p.CabinFinish,
			Category:    CategoryMaterial,
			UnitPrice:   cabinUnit,
			Description: "Incluye piso, cielo falso e iluminación",
		},
		{
			ID:          "labor",
			Label:       "Instalación y mano de obra",
			Category:    CategoryLabor,
			UnitPrice:   laborUnit,
			Description: "Incluye montaje mecánico, eléctrico y puesta en marcha",
		},
	}

	for i := range items {
		items[i].Quantity = count
		items[i].Total = items[i].UnitPrice * float64(count)
	}

	return items, nil
}

// ComputeSummary aggregates line items into the billing figures. Both rates
// are percentages (25 means 25%).
func ComputeSummary(items []LineItem, marginPercent, taxPercent float64) Summary {
	var materialCost, laborCost float64
	for _, item := range items {
		switch item.Category {
		case CategoryLabor:
			laborCost += item.Total
		default:
			materialCost += item.Total
		}
	}

	costTotal := materialCost + laborCost
	marginAmount := costTotal * (marginPercent / 100)
	preTaxPrice := costTotal + marginAmount
	taxAmount := preTaxPrice * (taxPercent / 100)

	return Summary{
		MaterialCost: materialCost,
		LaborCost:    laborCost,
		CostTotal:    costTotal,
		MarginAmount: marginAmount,
		PreTaxPrice:  preTaxPrice,
		TaxAmount:    taxAmount,
		FinalPrice:   preTaxPrice + taxAmount,
	}
}

// Warnings returns advisory notes about technically questionable
// configurations. They never block or alter the calculation.
func Warnings(p Project) []string {
	warns := []string{}
	if p.Stops > 7 && strings.Contains(p.MachineBrand, "Hydraulic") {
		warns = append(warns, "Advertencia: el sistema hidráulico no se recomienda para más de 7 paradas por costo y desempeño.")
	}
	if p.Stops > 12 && strings.Contains(p.MachineBrand, "Geared") {
		warns = append(warns, "Sugerencia: para edificios altos conviene una máquina gearless por consumo y velocidad.")
	}
	return warns
}

// Compute runs the full estimation: breakdown, totals and advisory warnings.
// It either fully succeeds or returns an error before producing any output.
func Compute(cat Catalog, p Project) (Result, error) {
	items, err := ComputeLineItems(cat, p)
	if err != nil {
		return Result{}, err
	}

	currency := cat.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return Result{
		Items:    items,
		Summary:  ComputeSummary(items, cat.ProfitMarginPercent, cat.TaxPercent),
		Warnings: Warnings(p),
		Currency: currency,
	}, nil
}
