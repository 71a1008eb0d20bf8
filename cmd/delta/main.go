package main

import (
	"fmt"
	"io"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = success
//	1 = request rejected or integrity check failed
//	2 = usage or runtime error
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "migrate":
		return runMigrateCmd(args[2:], stdout, stderr)
	case "import":
		return runImportCmd(args[2:], stdout, stderr)
	case "apply":
		return runApplyCmd(args[2:], stdout, stderr)
	case "set-parent":
		return runSetParentCmd(args[2:], stdout, stderr)
	case "audit-graph":
		return runAuditCmd(args[2:], stdout, stderr)
	case "health":
		return runHealthCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "delta %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: delta <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	for _, c := range [][2]string{
		{"migrate", "Create the database schema"},
		{"import", "Load approvable records from a JSON file (--file)"},
		{"apply", "Apply a workflow action to a record (--type, --id, --action, --payload)"},
		{"set-parent", "Set or remove the caused_by parent of a hazardous event (--child, --parent)"},
		{"audit-graph", "Check the full causal graph for cycles and multiple parents"},
		{"health", "Check database and notification outbox connectivity"},
		{"version", "Print the version"},
	} {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", c[0], c[1])
	}
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Every command accepts --config <file.yaml>; environment variables override the file.")
}
