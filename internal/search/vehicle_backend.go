package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"convorec/internal/domain"
	"convorec/internal/session"
)

// Embedder produces a query vector from free text, mirroring
// nonomal-WeKnora's internal/models/embedding.Embedder interface: the
// core depends only on this narrow capability, not on any particular
// embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VehicleBackend ranks candidates by cosine similarity between a query
// embedding (derived from the user's soft-preference notes) and stored
// vehicle embeddings, modeled on nonomal-WeKnora's
// internal/models/embedding + internal/models/rerank packages. Hard
// filters are still applied in SQL; only the ordering within the filtered
// set comes from the embedding.
type VehicleBackend struct {
	pool     *pgxpool.Pool
	embedder Embedder
	columns  ColumnMap
}

// NewVehicleBackend wires a pgx pool (vehicle catalog + precomputed
// embeddings) and an Embedder.
func NewVehicleBackend(pool *pgxpool.Pool, embedder Embedder, columns ColumnMap) *VehicleBackend {
	return &VehicleBackend{pool: pool, embedder: embedder, columns: columns}
}

func (b *VehicleBackend) Search(ctx context.Context, filters map[string]session.FilterValue, soft SoftPreferences, limit int) (Result, error) {
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

	query := "SELECT id, name, brand, price_minor, currency, image_url, available, rating, reviews_count, description, detail, embedding FROM vehicles"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var queryVec []float32
	if b.embedder != nil && soft.Notes != "" {
		if v, err := b.embedder.Embed(ctx, soft.Notes); err == nil {
			queryVec = v
		}
	}

	var candidates []scoredCandidate

	for rows.Next() {
		var (
			p      session.ProductSummary
			detail []byte
			emb    []float32
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.PriceMinor, &p.Currency, &p.ImageURL, &p.Available, &p.Rating, &p.ReviewsCount, &p.Description, &detail, &emb); err != nil {
			return Result{}, fmt.Errorf("scan vehicle row: %w", err)
		}
		p.ProductType = domain.Vehicles
		if len(detail) > 0 {
			var d map[string]any
			if err := json.Unmarshal(detail, &d); err == nil {
				p.Detail = d
			}
		}
		score := 0.0
		if queryVec != nil {
			score = cosineSimilarity(queryVec, emb)
		}
		candidates = append(candidates, scoredCandidate{product: p, score: score})
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].product.Rating > candidates[j].product.Rating
	})

	out := make([]session.ProductSummary, 0, len(candidates))
	for i, c := range candidates {
		if i >= limit {
			break
		}
		out = append(out, c.product)
	}

	return Result{Candidates: out, Provenance: "embedding:vehicles"}, nil
}

type scoredCandidate struct {
	product session.ProductSummary
	score   float64
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
