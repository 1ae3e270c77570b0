package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/cmd/medindex/internal"
	"github.com/DreamCats/medindex/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	configPath := ""
	verbose := false
	args := os.Args[1:]

	validSubcommands := map[string]bool{
		"ingest": true,
		"search": true,
		"report": true,
		"books":  true,
		"verify": true,
		"stats":  true,
		"mcp":    true,
	}

	// The subcommand is the first non-flag argument that names one.
	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	globalFlags := args
	if subcommandIndex >= 0 {
		globalFlags = args[:subcommandIndex]
	}
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch flag {
		case "-config", "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case "-v", "--verbose":
			verbose = true
		case "-h", "-help", "--help":
			internal.PrintUsage()
			os.Exit(0)
		case "-version", "--version":
			fmt.Printf("medindex version %s\n", internal.Version)
			os.Exit(0)
		default:
			if strings.HasPrefix(flag, "-") {
				fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			} else {
				fmt.Fprintf(os.Stderr, "Error: Unknown subcommand: %s\n\n", flag)
			}
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	closeLog, err := internal.SetupLogging(subcommand, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize log file: %v\n", err)
	}
	defer closeLog()

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		var notFound *config.ConfigNotFoundError
		if errors.As(err, &notFound) {
			if subcommand == "ingest" {
				created, createErr := config.WriteDefaultTemplate(notFound.RequestedPath)
				if createErr != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
					fmt.Fprintf(os.Stderr, "Also failed to create default config at %s: %v\n\n", notFound.RequestedPath, createErr)
					internal.PrintConfigExample()
					os.Exit(1)
				}
				if created {
					fmt.Fprintf(os.Stderr, "Created default config at %s\n", notFound.RequestedPath)
				}
				fmt.Fprintln(os.Stderr, "Please set embedding.api_key in the config file (or GOOGLE_AI_STUDIO_API_KEY) and rerun `medindex ingest`.")
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			internal.PrintConfigExample()
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("failed to load config")
	}

	switch subcommand {
	case "ingest":
		handleIngest(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "report":
		handleReport(cfg, subcommandArgs)
	case "books":
		handleBooks(cfg, subcommandArgs)
	case "verify":
		handleVerify(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	case "mcp":
		handleMCP(cfg, subcommandArgs)
	}
}
