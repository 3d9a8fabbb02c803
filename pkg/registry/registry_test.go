package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-notifier/internal/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRegistry_YAML(t *testing.T) {
	path := writeFile(t, "templates.yaml", `
version: "2"
templates:
  - kind: new_application
    subject: "Thanks for applying to {{.JobTitle}}"
    htmlBody: "<p>Hi {{.ApplicantName}}</p>"
  - kind: status_update
    subject: "Update on {{.JobTitle}}"
    htmlBody: "<p>{{.NewStatus}}</p>"
`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)

	byKind := reg.ByKind()
	require.Len(t, byKind, 2)
	assert.Equal(t, "Update on {{.JobTitle}}", byKind[models.KindStatusChanged].Subject)
}

func TestLoadRegistry_JSON(t *testing.T) {
	path := writeFile(t, "templates.json",
		`{"version":"1","templates":[{"kind":"new_application","subject":"s","htmlBody":"b"}]}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "b", reg.ByKind()[models.KindApplicationSubmitted].HTMLBody)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(writeFile(t, "templates.toml", "x = 1"))
	assert.Error(t, err)

	_, err = LoadRegistry(writeFile(t, "templates.json", "{not json"))
	assert.Error(t, err)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveRegistry_CreatesDirectory(t *testing.T) {
	reg := &TemplateRegistry{
		Version: "3",
		Templates: []models.NotificationTemplate{
			{Kind: models.KindStatusChanged, Subject: "Update on {{.JobTitle}}", HTMLBody: "<p>{{.NewStatus}}</p>"},
		},
	}

	for _, name := range []string{"nested/templates.yaml", "nested/templates.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveRegistry(reg, path))

			loaded, err := LoadRegistry(path)
			require.NoError(t, err)
			assert.Equal(t, "3", loaded.Version)
			assert.Equal(t, "<p>{{.NewStatus}}</p>", loaded.ByKind()[models.KindStatusChanged].HTMLBody)
		})
	}

	assert.Error(t, SaveRegistry(reg, filepath.Join(t.TempDir(), "templates.txt")))
}
