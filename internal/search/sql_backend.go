package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"convorec/internal/domain"
	"convorec/internal/session"
)

// ColumnMap tells the SQL backend which catalog column backs a slot key,
// and how to compare it (equality for categorical slots, upper-bound for
// price slots).
type ColumnMap struct {
	Equals   map[string]string // slot key -> column, exact match
	MaxPrice string            // column compared against a budget slot's value, <=
	Brand    string            // column used for soft-preference brand boosting
}

// SQLBackend is a relational SearchBackend for catalogs with a fixed table
// shape, grounded on the query-predicate style of
// codeready-toolchain-tarsy's repository layer (ent-style explicit
// predicates), adapted to raw pgx since the core owns no ent schema.
type SQLBackend struct {
	pool        *pgxpool.Pool
	table       string
	productType domain.Domain
	columns     ColumnMap
}

// NewSQLBackend wires a pgx pool against a single catalog table.
func NewSQLBackend(pool *pgxpool.Pool, table string, productType domain.Domain, columns ColumnMap) *SQLBackend {
	return &SQLBackend{pool: pool, table: table, productType: productType, columns: columns}
}

func (b *SQLBackend) Search(ctx context.Context, filters map[string]session.FilterValue, soft SoftPreferences, limit int) (Result, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		clauses []string
		args    []any
	)
	argPos := 1
	add := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	for key, col := range b.columns.Equals {
		if v, ok := filters[key]; ok {
			add(col+" = $%d", v.String())
		}
	}
	if b.columns.MaxPrice != "" {
		if v, ok := filters["budget"]; ok {
			if n, isNum := v.Int(); isNum {
				add(b.columns.MaxPrice+" <= $%d", n)
			}
		}
	}

	query := fmt.Sprintf(
		"SELECT id, name, brand, price_minor, currency, image_url, available, rating, reviews_count, description, detail FROM %s",
		b.table,
	)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderByBrandBoost(b.columns.Brand, soft, &args, &argPos)
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("query %s: %w", b.table, err)
	}
	defer rows.Close()

	var out []session.ProductSummary
	for rows.Next() {
		var (
			p        session.ProductSummary
			detail   []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.PriceMinor, &p.Currency, &p.ImageURL, &p.Available, &p.Rating, &p.ReviewsCount, &p.Description, &detail); err != nil {
			return Result{}, fmt.Errorf("scan %s row: %w", b.table, err)
		}
		p.ProductType = b.productType
		if len(detail) > 0 {
			var d map[string]any
			if err := json.Unmarshal(detail, &d); err == nil {
				p.Detail = d
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	return Result{Candidates: out, Provenance: fmt.Sprintf("sql:%s", b.table)}, nil
}

// orderByBrandBoost appends an ORDER BY that favors a liked brand before
// falling back to rating, a simple relevance proxy since the catalog has
// no embedding index of its own.
func orderByBrandBoost(brandCol string, soft SoftPreferences, args *[]any, argPos *int) string {
	if brandCol == "" || len(soft.Liked) == 0 {
		return " ORDER BY rating DESC"
	}
	clause := fmt.Sprintf(" ORDER BY (%s = ANY($%d)) DESC, rating DESC", brandCol, *argPos)
	*args = append(*args, soft.Liked)
	*argPos++
	return clause
}
