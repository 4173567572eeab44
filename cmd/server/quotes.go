package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Simplici0/vertical.works/internal/catalog"
	"github.com/Simplici0/vertical.works/internal/pricing"
)

type quoteRequest struct {
	Title        string          `json:"title"`
	CustomerName string          `json:"customer_name"`
	Notes        string          `json:"notes"`
	Project      pricing.Project `json:"project"`
}

type quoteListItem struct {
	ID           int64   `json:"id"`
	Reference    string  `json:"reference"`
	CreatedAt    string  `json:"created_at"`
	Title        string  `json:"title"`
	CustomerName string  `json:"customer_name"`
	Currency     string  `json:"currency"`
	Total        float64 `json:"total"`
}

type quoteDetail struct {
	ID            int64              `json:"id"`
	Reference     string             `json:"reference"`
	CreatedAt     string             `json:"created_at"`
	Title         string             `json:"title"`
	CustomerName  string             `json:"customer_name"`
	Notes         string             `json:"notes"`
	Project       pricing.Project    `json:"project"`
	MarginPercent float64            `json:"margin_percent"`
	TaxPercent    float64            `json:"tax_percent"`
	Currency      string             `json:"currency"`
	Items         []pricing.LineItem `json:"items"`
	Summary       pricing.Summary    `json:"summary"`
	Warnings      []string           `json:"warnings"`
}

// handleQuoteCreate computes an estimate with the current catalog and stores
// the result as an immutable snapshot. Later catalog edits never change a
// stored quote.
func (s *server) handleQuoteCreate(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	cat, err := catalog.Load(s.db)
	if err != nil {
		s.internalError(w, "load catalog", err)
		return
	}

	result, err := pricing.Compute(cat, req.Project)
	if err != nil {
		s.respondEngineError(w, "compute quote", err)
		return
	}

	id, err := s.insertQuote(req, cat, result)
	if err != nil {
		s.internalError(w, "insert quote", err)
		return
	}

	detail, err := s.getQuoteDetail(id)
	if err != nil {
		s.internalError(w, "read stored quote", err)
		return
	}

	writeJSON(w, http.StatusCreated, detail)
}

func (s *server) insertQuote(req quoteRequest, cat pricing.Catalog, result pricing.Result) (int64, error) {
	itemsJSON, err := json.Marshal(result.Items)
	if err != nil {
		return 0, fmt.Errorf("marshal items: %w", err)
	}
	totalsJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return 0, fmt.Errorf("marshal totals: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return 0, fmt.Errorf("marshal warnings: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO quotes (
			reference,
			title,
			customer_name,
			notes,
			elevator_count,
			stops,
			capacity,
			machine_brand,
			controller_brand,
			door_brand,
			cabin_finish,
			margin_percent_snapshot,
			tax_percent_snapshot,
			currency,
			items_json,
			totals_json,
			warnings_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.CustomerName),
		strings.TrimSpace(req.Notes),
		req.Project.ElevatorCount,
		req.Project.Stops,
		req.Project.Capacity,
		req.Project.MachineBrand,
		req.Project.ControllerBrand,
		req.Project.DoorBrand,
		req.Project.CabinFinish,
		cat.ProfitMarginPercent,
		cat.TaxPercent,
		result.Currency,
		string(itemsJSON),
		string(totalsJSON),
		string(warningsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert quote: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read quote id: %w", err)
	}
	return id, nil
}

func (s *server) handleQuotesList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.listQuotes(query)
	if err != nil {
		s.internalError(w, "list quotes", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"quotes": quotes,
	})
}

func (s *server) listQuotes(query string) ([]quoteListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT
			id,
			reference,
			created_at,
			COALESCE(title, ''),
			COALESCE(customer_name, ''),
			currency,
			totals_json
		FROM quotes
		WHERE (? = ''
			OR COALESCE(title, '') LIKE ?
			OR COALESCE(customer_name, '') LIKE ?
			OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]quoteListItem, 0)
	for rows.Next() {
		var item quoteListItem
		var totalsJSON string
		if err := rows.Scan(&item.ID, &item.Reference, &item.CreatedAt, &item.Title, &item.CustomerName, &item.Currency, &totalsJSON); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		item.Total = extractTotalFromJSON(totalsJSON)
		quotes = append(quotes, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func extractTotalFromJSON(totalsJSON string) float64 {
	var values map[string]float64
	if err := json.Unmarshal([]byte(totalsJSON), &values); err != nil {
		return 0
	}

	for _, key := range []string{"final_price", "total", "grand_total"} {
		if total, ok := values[key]; ok {
			return total
		}
	}

	return 0
}

// getQuoteDetail reads the stored snapshot as-is; it never reprices the quote.
func (s *server) getQuoteDetail(id int64) (quoteDetail, error) {
	var d quoteDetail
	var itemsJSON, totalsJSON, warningsJSON string
	err := s.db.QueryRow(`
		SELECT
			id,
			reference,
			created_at,
			COALESCE(title, ''),
			COALESCE(customer_name, ''),
			COALESCE(notes, ''),
			elevator_count,
			stops,
			capacity,
			machine_brand,
			controller_brand,
			door_brand,
			cabin_finish,
			margin_percent_snapshot,
			tax_percent_snapshot,
			currency,
			items_json,
			totals_json,
			warnings_json
		FROM quotes
		WHERE id = ?
	`, id).Scan(
		&d.ID,
		&d.Reference,
		&d.CreatedAt,
		&d.Title,
		&d.CustomerName,
		&d.Notes,
		&d.Project.ElevatorCount,
		&d.Project.Stops,
		&d.Project.Capacity,
		&d.Project.MachineBrand,
		&d.Project.ControllerBrand,
		&d.Project.DoorBrand,
		&d.Project.CabinFinish,
		&d.MarginPercent,
		&d.TaxPercent,
		&d.Currency,
		&itemsJSON,
		&totalsJSON,
		&warningsJSON,
	)
	if err != nil {
		return quoteDetail{}, err
	}

	if err := json.Unmarshal([]byte(itemsJSON), &d.Items); err != nil {
		return quoteDetail{}, fmt.Errorf("decode items snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &d.Summary); err != nil {
		return quoteDetail{}, fmt.Errorf("decode totals snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &d.Warnings); err != nil {
		return quoteDetail{}, fmt.Errorf("decode warnings snapshot: %w", err)
	}

	return d, nil
}

func (s *server) handleQuoteDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "id de cotización inválido")
		return
	}

	detail, err := s.getQuoteDetail(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSONError(w, http.StatusNotFound, "cotización no encontrada")
		return
	}
	if err != nil {
		s.internalError(w, "read quote", err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id de cotización inválido", http.StatusBadRequest)
		return
	}

	detail, err := s.getQuoteDetail(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.internalError(w, "read quote", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(renderQuoteText(detail)))
}

func renderQuoteText(d quoteDetail) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cotización %s\n", d.Reference)
	fmt.Fprintf(&b, "Fecha: %s\n", d.CreatedAt)
	if d.CustomerName != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", d.CustomerName)
	}
	if d.Title != "" {
		fmt.Fprintf(&b, "Proyecto: %s\n", d.Title)
	}

	b.WriteString("\nDatos del proyecto:\n")
	fmt.Fprintf(&b, "- Ascensores: %d\n", d.Project.ElevatorCount)
	fmt.Fprintf(&b, "- Paradas: %d\n", d.Project.Stops)
	fmt.Fprintf(&b, "- Capacidad: %s\n", d.Project.Capacity)

	b.WriteString("\nDetalle:\n")
	for _, item := range d.Items {
		fmt.Fprintf(&b, "- %s: %.2f %s\n", item.Label, item.Total, d.Currency)
	}

	b.WriteString("\nSupuestos:\n")
	fmt.Fprintf(&b, "- Margen: %.2f%%\n", d.MarginPercent)
	fmt.Fprintf(&b, "- Impuesto (VAT): %.2f%%\n", d.TaxPercent)

	fmt.Fprintf(&b, "\nCosto (materiales + mano de obra): %.2f %s\n", d.Summary.CostTotal, d.Currency)
	fmt.Fprintf(&b, "Total: %.2f %s\n", d.Summary.FinalPrice, d.Currency)

	if len(d.Warnings) > 0 {
		b.WriteString("\nAdvertencias:\n")
		for _, warn := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
	}

	return b.String()
}
