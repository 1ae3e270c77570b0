package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

// PrintUsage prints the command list to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `medindex - Semantic Search over Clinical Reference Books

Version: %s

USAGE:
    medindex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.medindex/config/medindex.yaml)

    -v
        Debug logging

    -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Extract, chunk, embed and store books

    search
        Search the stored chunks with a natural language question

    report
        Gather labs, pharmacology and care context for a patient

    books
        List ingested books

    verify
        Check which keywords appear in a book's chunks

    stats
        Show chunk store statistics

    mcp
        Run MCP stdio server (tools: medindex_search, medindex_books, medindex_report)

EXAMPLES:
    # Ingest everything under ./books
    medindex ingest

    # Ingest one book with an explicit title
    medindex ingest -title "Canadian Lab Test Manual" lab_manual.pdf

    # Search one book
    medindex search -book "ACLS Provider Manual" "amiodarone dose"

    # Let the router pick the book
    medindex search -book auto "ACLS bradycardia algorithm"

    # Build report context
    medindex report -diagnosis "septic shock" -drips "norepinephrine"

For detailed help on each command, use:
    medindex <command> -help
`, Version)
}
