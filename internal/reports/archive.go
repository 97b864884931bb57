package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/storage"
)

// Archiver uploads JSON snapshots of the summary to object storage.
type Archiver struct {
	reports *Service
	client  storage.Client
	prefix  string
	keep    int
	log     *zap.Logger
}

// NewArchiver builds an archiver writing under prefix. When keep is positive only the
// newest keep snapshots are retained.
func NewArchiver(reports *Service, client storage.Client, prefix string, keep int, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{reports: reports, client: client, prefix: prefix, keep: keep, log: log}
}

// Archive uploads the current summary and returns its object key.
func (a *Archiver) Archive(ctx context.Context) (string, error) {
	summary, err := a.reports.Summary(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	key := storage.JoinKey(a.prefix, "summary-"+summary.GeneratedAt.Format("20060102T150405Z")+".json")
	if err := a.client.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", err
	}
	a.log.Info("report archived", zap.String("key", key), zap.Int("bytes", len(body)))

	if a.keep > 0 {
		deleted, err := storage.Prune(ctx, a.client, storage.JoinKey(a.prefix, "summary-"), a.keep)
		if err != nil {
			a.log.Warn("failed to prune archived reports", zap.Error(err))
		} else if len(deleted) > 0 {
			a.log.Info("old reports pruned", zap.Int("count", len(deleted)))
		}
	}
	return key, nil
}

// Snapshots lists the archived summaries under the archive prefix.
func (a *Archiver) Snapshots(ctx context.Context) ([]storage.FileInfo, error) {
	files, err := a.client.List(ctx, storage.JoinKey(a.prefix, "summary-"))
	if err != nil {
		return nil, err
	}
	return storage.FilterFiles(files, func(f storage.FileInfo) bool {
		return strings.HasSuffix(f.Key, ".json")
	}), nil
}

// Latest returns the newest archived summary, or nil when nothing was archived yet.
func (a *Archiver) Latest(ctx context.Context) (*storage.FileInfo, error) {
	files, err := a.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	return storage.FindLatest(files), nil
}
