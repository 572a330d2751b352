// Package export writes an audit snapshot of the credit engine state to a
// local file or to S3-compatible object storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"github.com/dmitrijs2005/creditkeeper/internal/filex"
)

// Snapshot is the exported state.
type Snapshot struct {
	ExportedAt            time.Time                   `json:"exported_at"`
	InstallationID        string                      `json:"installation_id"`
	Balance               int64                       `json:"balance"`
	FreeTrial             models.FreeTrialState       `json:"free_trial"`
	History               []models.CreditHistoryEntry `json:"history"`
	Purchases             []models.PurchaseRecord     `json:"purchases"`
	ProcessedTransactions map[string]time.Time        `json:"processed_transactions"`
}

func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// ObjectName is the file or object name a snapshot taken at t is stored under.
func ObjectName(installationID string, t time.Time) string {
	return fmt.Sprintf("creditkeeper-%s-%s.json", installationID, t.UTC().Format("20060102T150405Z"))
}

// Sink stores a snapshot and returns where it ended up.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes snapshots into Dir.
type FileSink struct {
	Dir string
}

func (s FileSink) Write(_ context.Context, name string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		var err error
		if dir, err = filex.EnsureSubdDir("exports"); err != nil {
			return "", fmt.Errorf("failed to prepare export dir: %w", err)
		}
	}
	path := filepath.Join(dir, name)
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
