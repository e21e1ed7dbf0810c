package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runServe()
	case "demo":
		runDemo()
	case "types":
		runTypes()
	case "version":
		runVersion()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("AgentAPI Runtime")
	fmt.Println()
	fmt.Println("Usage: agentd <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run        - Start the runtime from a config file")
	fmt.Println("  demo       - Run a self-contained demo scenario")
	fmt.Println("  types      - List built-in component types")
	fmt.Println("  version    - Show version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --config   - Path to YAML config (default: agentapi.yaml)")
	fmt.Println("  --log-level - Log level: debug, info, warn, error (default: info)")
	fmt.Println("  --metrics  - Collect dispatch metrics via OpenTelemetry (run command)")
}
