package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mediaid-gateway/internal/models"
)

// Memory serves the catalog from an immutable in-process slice.
type Memory struct {
	records []models.DrugRecord
	byID    map[string]int
}

var _ Catalog = (*Memory)(nil)

// NewMemory builds an in-memory catalog. Records keep the order given.
func NewMemory(records []models.DrugRecord) (*Memory, error) {
	if len(records) == 0 {
		return nil, errors.New("catalog must contain at least one drug")
	}

	m := &Memory{
		records: make([]models.DrugRecord, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for i, d := range records {
		if _, dup := m.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate drug id %q", d.ID)
		}
		m.records[i] = d.Clone()
		m.byID[d.ID] = i
	}
	return m, nil
}

func (m *Memory) Search(ctx context.Context, query string) ([]models.DrugRecord, error) {
	q, err := normalizeQuery(query)
	if err != nil {
		return nil, err
	}

	type hit struct {
		tier int
		pos  int
	}
	hits := []hit{}
	for i, d := range m.records {
		if tier := rank(d, q); tier != noMatch {
			hits = append(hits, hit{tier: tier, pos: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].tier < hits[b].tier
	})

	out := make([]models.DrugRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, m.records[h.pos].Clone())
	}
	return out, nil
}

func (m *Memory) LookupByKeywords(ctx context.Context, text string) ([]models.DrugRecord, error) {
	return matchKeywords(m.records, text), nil
}

func (m *Memory) List(ctx context.Context, symptom string) ([]models.DrugRecord, error) {
	symptom = strings.TrimSpace(symptom)
	out := make([]models.DrugRecord, 0, len(m.records))
	for _, d := range m.records {
		if symptom == "" || hasSymptom(d, symptom) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (models.DrugRecord, error) {
	i, ok := m.byID[id]
	if !ok {
		return models.DrugRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.records[i].Clone(), nil
}

func (m *Memory) Close() error {
	return nil
}
