package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.0"

// PrintUsage writes the top-level help text to stderr
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `expindex - Retrieval service for campus interview experiences

Version: %s

USAGE:
    expindex [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.expindex/config/expindex.yaml)

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    serve
        Start the HTTP API server

    reindex
        Rebuild the vector index from all approved experiences

    query
        Ask a question against the index from the command line

    stats
        Show index and database statistics

EXAMPLES:
    # Start the API server
    expindex serve

    # Rebuild the index
    expindex reindex

    # Ask a question
    expindex query "what DSA topics come up at Acme?"

    # Filter by company and year
    expindex query -company Acme -year 2024 "any preparation tips?"

    # Show statistics
    expindex stats

For detailed help on each command, use:
    expindex <command> -help
`, Version)
}
