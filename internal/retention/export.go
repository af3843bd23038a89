package retention

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"diet-agent/internal/models"
)

type auditFile struct {
	ExportedAt string                    `json:"exported_at"`
	PurgeID    string                    `json:"purge_id"`
	Cutoff     string                    `json:"cutoff"`
	Months     int                       `json:"retention_months"`
	Users      []models.UserPurgeSummary `json:"users"`
}

// writeAudit snapshots the pre-delete summary to a JSON file so purged
// history is never silently lost. Returns the file path.
func writeAudit(dir string, rep *models.PurgeReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	audit := auditFile{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		PurgeID:    rep.ID,
		Cutoff:     rep.Cutoff.Format(models.DayFormat),
		Months:     rep.Months,
		Users:      rep.Users,
	}

	data, err := json.MarshalIndent(audit, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit: %w", err)
	}

	name := fmt.Sprintf("purge-%s-%s.json", audit.Cutoff, rep.ID[:8])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audit file: %w", err)
	}
	return path, nil
}
