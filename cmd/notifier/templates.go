// cmd/notifier/templates.go
package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/templates"
	"hiring-notifier/pkg/registry"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the template registry file",
}

var templatesExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Write the built-in templates to a .json or .yaml registry file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := exportDefaults(args[0], time.Now().UTC()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d templates to %s\n", len(models.Kinds()), args[0])
		return nil
	},
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check that a registry file covers every event kind and renders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateRegistry(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	templatesCmd.AddCommand(templatesExportCmd)
	templatesCmd.AddCommand(templatesValidateCmd)
}

func exportDefaults(path string, now time.Time) error {
	defaults := templates.DefaultTemplates()
	reg := &registry.TemplateRegistry{
		Version:     "1.0.0",
		LastUpdated: now.Format(time.RFC3339),
	}
	for _, tmpl := range defaults {
		reg.Templates = append(reg.Templates, tmpl)
	}
	sort.Slice(reg.Templates, func(i, j int) bool { return reg.Templates[i].Kind < reg.Templates[j].Kind })
	return registry.SaveRegistry(reg, path)
}

func validateRegistry(w io.Writer, path string) error {
	if _, err := templates.FromRegistryFile(path); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	_, err := fmt.Fprintf(w, "Registry validation passed: %s\n", path)
	return err
}
