package translator

import "mediaid-gateway/internal/models"

// DrugView is the wire form of a drug record. List fields are never null.
type DrugView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	GenericName string   `json:"generic_name"`
	Description string   `json:"description"`
	Uses        []string `json:"uses"`
	Dosage      string   `json:"dosage"`
	SideEffects []string `json:"side_effects"`
	Precautions []string `json:"precautions"`
	Symptoms    []string `json:"symptoms"`
}

// FromDrug converts one drug record.
func FromDrug(d models.DrugRecord) DrugView {
	return DrugView{
		ID:          d.ID,
		Name:        d.Name,
		GenericName: d.GenericName,
		Description: d.Description,
		Uses:        orEmpty(d.Uses),
		Dosage:      d.Dosage,
		SideEffects: orEmpty(d.SideEffects),
		Precautions: orEmpty(d.Precautions),
		Symptoms:    orEmpty(d.Symptoms),
	}
}

// FromDrugs converts records, preserving order. The result is never nil.
func FromDrugs(records []models.DrugRecord) []DrugView {
	out := make([]DrugView, 0, len(records))
	for _, d := range records {
		out = append(out, FromDrug(d))
	}
	return out
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
