package retention

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"diet-agent/internal/logger"
	"diet-agent/internal/models"
	"diet-agent/internal/storage"
)

// DefaultMonths is the retention window: meals older than two calendar
// months are purged.
const DefaultMonths = 2

// Manager purges meal events older than the retention window. Scheduling is
// the caller's concern; each Purge call is self-contained and idempotent.
type Manager struct {
	store     *storage.Store
	log       *logger.Logger
	exportDir string // empty disables the audit file
}

func New(store *storage.Store, log *logger.Logger, exportDir string) *Manager {
	return &Manager{store: store, log: log, exportDir: exportDir}
}

// Purge deletes every meal event strictly older than referenceDate minus
// months calendar months. Before deleting it summarizes the affected rows per
// user and, when an export directory is configured, writes that summary to a
// JSON audit file. Running twice with the same reference date deletes
// nothing the second time.
func (m *Manager) Purge(referenceDate time.Time, months int) (*models.PurgeReport, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	cutoff := MonthsBefore(referenceDate, months)

	rep := &models.PurgeReport{
		ID:        uuid.NewString(),
		Reference: referenceDate,
		Cutoff:    cutoff,
		Months:    months,
		RanAt:     time.Now().UTC(),
	}

	users, err := m.store.SummarizeMealsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge: summarize: %w", err)
	}
	rep.Users = users

	if m.exportDir != "" && len(users) > 0 {
		path, err := writeAudit(m.exportDir, rep)
		if err != nil {
			// The audit file is best effort; losing it must not block the
			// purge, but it is worth a loud log line.
			m.log.Warn("purge audit export failed", "error", err)
		} else {
			rep.ExportPath = path
		}
	}

	deleted, err := m.store.DeleteMealsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge: %w", err)
	}
	rep.Deleted = deleted

	m.log.Info("retention purge complete",
		"cutoff", cutoff.Format(models.DayFormat),
		"deleted", deleted,
		"users", len(users),
	)
	return rep, nil
}

// MonthsBefore subtracts whole calendar months from t, clamping to the last
// valid day of the target month instead of letting the date overflow
// (Aug 31 minus 1 month is Jul 31; Mar 31 minus 1 month is Feb 28/29).
func MonthsBefore(t time.Time, months int) time.Time {
	u := t.UTC()
	first := time.Date(u.Year(), u.Month()-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	d := u.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
