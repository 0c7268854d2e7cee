// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coachme-notifier/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	force := initCmd.Bool("force", false, "Overwrite an existing registry file")
	for _, fs := range []*flag.FlagSet{initCmd, validateCmd, listCmd} {
		fs.StringVar(&registryPath, "path", "configs/trigger-registry.json", "Path to registry file")
	}

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if err := writeDefault(*force); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default registry to %s\n", registryPath)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err == nil {
			err = reg.Validate()
		}
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d triggers.\n", len(reg.Triggers))

	case "list":
		listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		for _, t := range reg.Triggers {
			fmt.Println(describe(t))
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func describe(t registry.Trigger) string {
	var on string
	if t.Source == registry.SourceSchedule {
		on = "schedule " + t.Schedule
	} else {
		on = t.Collection + " " + t.Event
	}
	return fmt.Sprintf("%-28s %-32s errors=%s", t.Name, on, strings.Join(t.ErrorCodes, ","))
}

func writeDefault(force bool) error {
	if _, err := os.Stat(registryPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force)", registryPath)
	}
	reg := registry.Default()
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

func saveRegistry(reg *registry.TriggerRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  init      Write the built-in trigger registry to a file
  validate  Validate a registry file
  list      Print the triggers in a registry file
  help      Show this help message

Examples:
  registry-updater init -path configs/trigger-registry.json
  registry-updater validate -path configs/trigger-registry.json
  registry-updater list

Use 'registry-updater <command> -h' for more information about a command.
`)
}
