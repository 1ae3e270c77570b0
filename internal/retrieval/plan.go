package retrieval

import (
	"strings"

	"github.com/DreamCats/medindex/internal/config"
)

// Category names produced by ClinicalPlan.
const (
	CategoryLabs         = "labs"
	CategoryPharmacology = "pharmacology"
	CategoryGeneral      = "general"
)

// Patient carries the fields that shape the clinical searches.
type Patient struct {
	Diagnosis    string `json:"diagnosis"`
	VentSettings string `json:"vent_settings,omitempty"`
	Drips        string `json:"drips,omitempty"`
	Medications  string `json:"medications,omitempty"`
}

// ClinicalPlan builds the labs, pharmacology, general plan for a report.
// Each category starts with its primary book; physician and nursing
// references follow.
func ClinicalPlan(p Patient, src config.ClinicalSource, categoryCap int) Plan {
	diagnosis := strings.TrimSpace(p.Diagnosis)

	labQuery := "ICU lab tests diagnostics monitoring"
	medQuery := "ICU pharmacology medication management"
	careQuery := "ICU nursing care management"
	if diagnosis != "" {
		labQuery = diagnosis + " lab tests monitoring diagnostics"
		medQuery = diagnosis + " pharmacology medication management"
		careQuery = diagnosis + " nursing care management intervention"
	}

	labs := Category{
		Name:    CategoryLabs,
		Section: "LABS_DIAGNOSTICS",
		Searches: []Query{
			{Text: labQuery, Source: src.LabManual, TopK: 10},
			{Text: labQuery, Source: src.Physician, TopK: 5},
			{Text: labQuery, Source: src.Nursing, TopK: 5},
		},
	}

	pharm := Category{
		Name:     CategoryPharmacology,
		Section:  "PHARMACOLOGY",
		Searches: []Query{{Text: medQuery, Source: src.Pharmacology, TopK: 10}},
	}
	if meds := strings.TrimSpace(p.Medications + " " + p.Drips); meds != "" {
		pharm.Searches = append(pharm.Searches, Query{
			Text:   meds + " dosing interactions monitoring",
			Source: src.Pharmacology,
			TopK:   8,
		})
	}
	pharm.Searches = append(pharm.Searches,
		Query{Text: medQuery, Source: src.Physician, TopK: 5},
		Query{Text: medQuery, Source: src.Nursing, TopK: 5},
	)

	general := Category{
		Name:    CategoryGeneral,
		Section: "CLINICAL_GUIDELINES",
		Searches: []Query{
			{Text: careQuery, Source: src.Nursing, TopK: 8},
			{Text: careQuery, Source: src.Physician, TopK: 8},
		},
	}
	if strings.TrimSpace(p.VentSettings) != "" {
		general.Searches = append(general.Searches, Query{
			Text: "ventilator management mechanical ventilation",
			TopK: 5,
		})
	}

	return Plan{
		Categories: []Category{labs, pharm, general},
		Cap:        categoryCap,
	}
}
