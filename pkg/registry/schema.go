// pkg/registry/schema.go
package registry

import "hiring-notifier/internal/models"

// TemplateRegistry is the on-disk form of the notification template set.
type TemplateRegistry struct {
	Version     string                        `json:"version" yaml:"version"`
	LastUpdated string                        `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	Templates   []models.NotificationTemplate `json:"templates" yaml:"templates"`
}

// ByKind indexes the templates by event kind. Later entries win.
func (r *TemplateRegistry) ByKind() map[models.EventKind]models.NotificationTemplate {
	out := make(map[models.EventKind]models.NotificationTemplate, len(r.Templates))
	for _, tmpl := range r.Templates {
		out[tmpl.Kind] = tmpl
	}
	return out
}
