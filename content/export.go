package content

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rpupo63/portfolio-site-backend/models"
	"github.com/rpupo63/portfolio-site-backend/services"
)

// Export is the backup document written by ExportJSON.
type Export struct {
	Settings   *models.Settings  `json:"settings"`
	Projects   []*models.Project `json:"projects"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// ExportJSON writes the cached content as an indented JSON document. It
// makes no network calls.
func (m *Manager) ExportJSON(w io.Writer) error {
	doc := Export{
		Settings:   m.Settings(),
		Projects:   m.Projects(),
		ExportedAt: m.now().UTC(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// BackupFilename returns "<site>-backup-<unix-ms>.json" for the current
// time.
func (m *Manager) BackupFilename() string {
	site := "site"
	if s := m.Settings(); s != nil {
		if slug := services.GenerateSlug(s.SiteName); slug != "" {
			site = slug
		}
	}
	return fmt.Sprintf("%s-backup-%d.json", site, m.now().UnixMilli())
}
