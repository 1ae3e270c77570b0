package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/retrieval"
)

// handleReport implements the report subcommand
func handleReport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)

	var patient retrieval.Patient
	var jsonOutput bool
	fs.StringVar(&patient.Diagnosis, "diagnosis", "", "Primary diagnosis")
	fs.StringVar(&patient.VentSettings, "vent", "", "Ventilator settings")
	fs.StringVar(&patient.Drips, "drips", "", "Continuous infusions")
	fs.StringVar(&patient.Medications, "meds", "", "Scheduled medications")
	fs.BoolVar(&jsonOutput, "json", false, "Output categories as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex report [-diagnosis "<diagnosis>"] [options]

DESCRIPTION:
    Run the labs, pharmacology and general care searches for a patient and
    print each category's reference context. A chunk appears in at most one
    category; earlier categories take precedence. Without a diagnosis the
    searches fall back to general ICU queries.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    medindex report -diagnosis "septic shock" -drips "norepinephrine, vasopressin"
    medindex report -diagnosis "ARDS" -vent "AC VT 420 PEEP 12 FiO2 60%%" -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	db := openStore(cfg)
	defer db.Close()

	plan := retrieval.ClinicalPlan(patient, cfg.Retrieval.Sources, cfg.Retrieval.CategoryCap)
	agg, err := retrieval.NewAggregator(newRetriever(cfg, db)).Run(context.Background(), plan, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("report aggregation failed")
	}

	for _, d := range agg.Degraded {
		log.Warn().Err(d.Err).Str("category", d.Category).Str("source", d.Source).Msg("search returned no context")
	}

	if jsonOutput {
		for i := range agg.Categories {
			agg.Categories[i].Results = retrieval.DisplayResults(agg.Categories[i].Results)
		}
		printJSON(agg)
		return
	}
	for _, c := range agg.Categories {
		fmt.Printf("=== %s (%d) ===\n\n%s\n\n", c.Section, len(c.Results), retrieval.FormatCategory(c))
	}
}
