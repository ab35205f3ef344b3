package export

import (
	"encoding/json"
	"fmt"
	"time"

	"tool_custody/models"
)

// Backup is the full-state export. Trainer password hashes never leave the
// store.
type Backup struct {
	Items        []models.Item        `json:"items"`
	Trainers     []models.Trainer     `json:"trainers"`
	Transactions []models.Transaction `json:"transactions"`
	ExportedAt   time.Time            `json:"exportedAt"`
}

func NewBackup(s models.Snapshot, now time.Time) Backup {
	c := s.Clone()
	for i := range c.Trainers {
		c.Trainers[i].PasswordHash = ""
	}
	return Backup{
		Items:        nonNil(c.Items),
		Trainers:     nonNil(c.Trainers),
		Transactions: nonNil(c.Transactions),
		ExportedAt:   now.UTC(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (b Backup) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Key is the object key archives are stored under.
func (b Backup) Key() string {
	return fmt.Sprintf("backups/backup-%s.json", b.ExportedAt.UTC().Format("20060102T150405Z"))
}
