// cmd/notifier/render.go
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hiring-notifier/internal/models"
	"hiring-notifier/internal/notification/templates"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the email rendered for a sample event",
	Example: `  notifier render --type status_update --job-title Welder \
    --applicant-name "R. Singh" --applicant-email r@example.com --new-status interview`,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.String("type", string(models.KindApplicationSubmitted), "event type: new_application | status_update")
	f.String("job-id", "", "job identifier")
	f.String("job-title", "Warehouse Associate", "job title")
	f.String("applicant-name", "A. Kumar", "applicant name")
	f.String("applicant-email", "a@example.com", "applicant email")
	f.String("new-status", "", "new status (status_update only)")
	f.String("registry", "", "template registry file (default: templates.registry_path or built-ins)")
}

func runRender(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	payload := models.EventPayload{}
	payload.Type, _ = f.GetString("type")
	payload.JobID, _ = f.GetString("job-id")
	payload.JobTitle, _ = f.GetString("job-title")
	payload.ApplicantName, _ = f.GetString("applicant-name")
	payload.ApplicantEmail, _ = f.GetString("applicant-email")
	payload.NewStatus, _ = f.GetString("new-status")

	path, _ := f.GetString("registry")
	if path == "" && configPath != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Templates.RegistryPath
	}

	resolver, err := templates.FromRegistryFile(path)
	if err != nil {
		return err
	}
	return renderEvent(cmd.OutOrStdout(), resolver, payload)
}

func renderEvent(w io.Writer, resolver *templates.Resolver, payload models.EventPayload) error {
	event, err := payload.ToEvent()
	if err != nil {
		return err
	}
	msg, err := resolver.Resolve(event)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "To: %s\nSubject: %s\nCorrelation-Key: %s\n\n%s\n",
		event.Recipient().Email, msg.Subject, event.CorrelationKey(), msg.HTML)
	return err
}
