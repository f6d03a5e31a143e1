// Package ingest turns raw dump files into indexed documents. Files wait in
// an unparsed directory, are streamed to the search engine in batches, and
// move to a parsed directory once fully indexed. All operations run as
// tracked tasks so clients can poll progress, and completions are announced
// on the event bus so the index cache refreshes itself.
package ingest

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leakdex/leakdex/internal/config"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/models"
	"github.com/leakdex/leakdex/internal/queue"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/search"
	"github.com/leakdex/leakdex/internal/tasks"
	"github.com/leakdex/leakdex/internal/utils"
)

// CompletedEvent is published on the event bus when an ingest or clean task
// finishes successfully.
type CompletedEvent struct {
	TaskID string `json:"task_id"`
	Node   string `json:"node"`
	Index  string `json:"index"`
	Files  int    `json:"files"`
	Lines  uint64 `json:"lines"`
}

// FailedEvent is published when a task body terminates with an error.
type FailedEvent struct {
	TaskID string `json:"task_id"`
	Type   string `json:"type"`
	Error  string `json:"error"`
}

// Service drives file ingestion, bulk deletion and index resets.
type Service struct {
	cfg       config.IngestConfig
	registry  registry.Store
	clients   search.Factory
	tasks     *tasks.Registry
	publisher queue.Publisher
	logger    *logging.Logger
}

// New creates an ingest service.
func New(cfg config.IngestConfig, reg registry.Store, clients search.Factory, taskReg *tasks.Registry, publisher queue.Publisher, logger *logging.Logger) *Service {
	return &Service{
		cfg:       cfg,
		registry:  reg,
		clients:   clients,
		tasks:     taskReg,
		publisher: publisher,
		logger:    logger.With("component", "ingest"),
	}
}

// ListFiles returns the filenames waiting to be ingested and those already
// ingested, both sorted.
func (s *Service) ListFiles() (unparsed, parsed []string, err error) {
	unparsed, err = listDir(s.cfg.UnparsedDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list unparsed files: %w", err)
	}
	parsed, err = listDir(s.cfg.ParsedDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list parsed files: %w", err)
	}
	return unparsed, parsed, nil
}

// ParseFile ingests one named file asynchronously and returns the task id.
func (s *Service) ParseFile(ctx context.Context, filename, nodeName, index string) (string, error) {
	if err := validFilename(filename); err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.cfg.UnparsedDir, filename)); err != nil {
		return "", fmt.Errorf("file not found: %s", filename)
	}

	node, index, err := s.resolveTarget(ctx, nodeName, index)
	if err != nil {
		return "", err
	}

	taskID := s.tasks.Create(models.TaskTypeParse, filename)
	go s.runIngest(taskID, *node, index, []string{filename})
	return taskID, nil
}

// ParseAllUnparsed ingests every waiting file asynchronously, sequentially,
// aborting on the first failure.
func (s *Service) ParseAllUnparsed(ctx context.Context, nodeName, index string) (string, error) {
	files, err := listDir(s.cfg.UnparsedDir)
	if err != nil {
		return "", fmt.Errorf("failed to list unparsed files: %w", err)
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no unparsed files to ingest")
	}

	node, index, err := s.resolveTarget(ctx, nodeName, index)
	if err != nil {
		return "", err
	}

	taskID := s.tasks.Create(models.TaskTypeParseAll, "")
	go s.runIngest(taskID, *node, index, files)
	return taskID, nil
}

// BulkDelete removes documents by id in fixed-size chunks, asynchronously.
func (s *Service) BulkDelete(ctx context.Context, nodeName, index string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("no document ids given")
	}

	node, index, err := s.resolveTarget(ctx, nodeName, index)
	if err != nil {
		return "", err
	}

	taskID := s.tasks.Create(models.TaskTypeBulkDelete, "")
	go s.runBulkDelete(taskID, *node, index, ids)
	return taskID, nil
}

// Clean resets an index: every indexed document is dropped and every parsed
// file moves back to the unparsed directory, ready for re-ingestion.
func (s *Service) Clean(ctx context.Context, nodeName, index string) (string, error) {
	node, index, err := s.resolveTarget(ctx, nodeName, index)
	if err != nil {
		return "", err
	}

	taskID := s.tasks.Create(models.TaskTypeClean, "")
	go s.runClean(taskID, *node, index)
	return taskID, nil
}

// resolveTarget fills in configured defaults and looks the node up in the
// registry.
func (s *Service) resolveTarget(ctx context.Context, nodeName, index string) (*models.Node, string, error) {
	if nodeName == "" {
		nodeName = s.cfg.DefaultNode
	}
	if nodeName == "" {
		return nil, "", fmt.Errorf("no target node given and no default configured")
	}
	if index == "" {
		index = s.cfg.DefaultIndex
	}

	node, err := s.registry.GetNode(ctx, nodeName)
	if err != nil {
		return nil, "", fmt.Errorf("unknown target node %s: %w", nodeName, err)
	}
	return node, index, nil
}

// runIngest is the async body of parse and parse-all tasks. The line total
// across all files is established up front with a full pre-count pass, then
// files stream sequentially; cumulative progress flows through a channel the
// task registry mirrors.
func (s *Service) runIngest(taskID string, node models.Node, index string, files []string) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.TaskBodyTimeout)
	defer cancel()

	client := s.clients(node)

	s.tasks.SetPhase(taskID, models.TaskStatusCounting)

	var total uint64
	for _, file := range files {
		n, err := countLines(filepath.Join(s.cfg.UnparsedDir, file))
		if err != nil {
			s.fail(ctx, taskID, models.TaskTypeParse, fmt.Errorf("failed to count %s: %w", file, err))
			return
		}
		total += n
	}
	s.tasks.SetTotal(taskID, total)

	if err := s.ensureIndex(ctx, client, index); err != nil {
		s.fail(ctx, taskID, models.TaskTypeParse, err)
		return
	}

	progress := make(chan uint64, 64)
	watchDone := make(chan struct{})
	go func() {
		s.tasks.Watch(taskID, progress)
		close(watchDone)
	}()

	s.tasks.SetPhase(taskID, models.TaskStatusProcessing)

	var processed uint64
	for _, file := range files {
		n, err := s.indexFile(ctx, client, index, file, processed, progress)
		processed = n
		if err != nil {
			close(progress)
			<-watchDone
			// Remaining files are deliberately skipped: cumulative progress
			// reports how far the ingest got.
			s.fail(ctx, taskID, models.TaskTypeParse, fmt.Errorf("failed on %s: %w", file, err))
			return
		}

		if err := moveFile(s.cfg.UnparsedDir, s.cfg.ParsedDir, file); err != nil {
			close(progress)
			<-watchDone
			s.fail(ctx, taskID, models.TaskTypeParse, fmt.Errorf("failed to move %s: %w", file, err))
			return
		}
	}

	close(progress)
	<-watchDone

	s.tasks.Complete(taskID, fmt.Sprintf("indexed %d lines from %d files", processed, len(files)))
	s.publishCompleted(ctx, CompletedEvent{
		TaskID: taskID,
		Node:   node.Name,
		Index:  index,
		Files:  len(files),
		Lines:  processed,
	})
}

// indexFile streams one file to the engine in batches. startAt is the
// cumulative line count before this file; the returned count includes it.
func (s *Service) indexFile(ctx context.Context, client search.Client, index, file string, startAt uint64, progress chan<- uint64) (uint64, error) {
	f, err := os.Open(filepath.Join(s.cfg.UnparsedDir, file))
	if err != nil {
		return startAt, err
	}
	defer f.Close()

	processed := startAt
	batch := make([]search.Document, 0, s.cfg.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.Bulk(ctx, index, batch); err != nil {
			return err
		}
		processed += uint64(len(batch))
		progress <- processed
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		batch = append(batch, search.Document{
			ID:         DocumentID(line),
			Line:       line,
			SourceFile: file,
		})
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return processed, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return processed, err
	}
	return processed, flush()
}

// runBulkDelete is the async body of bulk-delete tasks. Both deleted and
// not-found ids count as processed; a chunk-level failure aborts the task.
func (s *Service) runBulkDelete(taskID string, node models.Node, index string, ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.TaskBodyTimeout)
	defer cancel()

	client := s.clients(node)

	s.tasks.SetTotal(taskID, uint64(len(ids)))
	s.tasks.SetPhase(taskID, models.TaskStatusDeleting)

	for start := 0; start < len(ids); start += utils.DeleteChunkSize {
		end := start + utils.DeleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		result, err := client.DeleteByIDs(ctx, index, ids[start:end])
		if err != nil {
			s.fail(ctx, taskID, models.TaskTypeBulkDelete, fmt.Errorf("delete chunk failed: %w", err))
			return
		}

		s.tasks.AddProgress(taskID, uint64(result.Deleted+result.NotFound))
	}

	s.tasks.Complete(taskID, fmt.Sprintf("deleted %d documents", len(ids)))
}

// runClean is the async body of clean tasks. Total mixes two units, account
// count plus file count; the ETA over that mix is an accepted approximation.
func (s *Service) runClean(taskID string, node models.Node, index string) {
	ctx, cancel := context.WithTimeout(context.Background(), utils.TaskBodyTimeout)
	defer cancel()

	client := s.clients(node)

	count, err := client.Count(ctx, index, "")
	if err != nil {
		s.fail(ctx, taskID, models.TaskTypeClean, fmt.Errorf("failed to count documents: %w", err))
		return
	}

	files, err := listDir(s.cfg.ParsedDir)
	if err != nil {
		s.fail(ctx, taskID, models.TaskTypeClean, fmt.Errorf("failed to list parsed files: %w", err))
		return
	}

	s.tasks.SetTotal(taskID, count+uint64(len(files)))

	s.tasks.SetPhase(taskID, models.TaskStatusDeleting)
	if err := client.DeleteIndex(ctx, index); err != nil && !search.IsNotFound(err) {
		s.fail(ctx, taskID, models.TaskTypeClean, fmt.Errorf("failed to delete index: %w", err))
		return
	}
	if err := client.CreateIndex(ctx, index); err != nil {
		s.fail(ctx, taskID, models.TaskTypeClean, fmt.Errorf("failed to recreate index: %w", err))
		return
	}
	s.tasks.AddProgress(taskID, count)

	s.tasks.SetPhase(taskID, models.TaskStatusMoving)
	for _, file := range files {
		if err := moveFile(s.cfg.ParsedDir, s.cfg.UnparsedDir, file); err != nil {
			s.fail(ctx, taskID, models.TaskTypeClean, fmt.Errorf("failed to move %s back: %w", file, err))
			return
		}
		s.tasks.AddProgress(taskID, 1)
	}

	s.tasks.Complete(taskID, fmt.Sprintf("dropped %d documents, returned %d files", count, len(files)))
	s.publishCompleted(ctx, CompletedEvent{
		TaskID: taskID,
		Node:   node.Name,
		Index:  index,
		Files:  len(files),
	})
}

// ensureIndex creates the target index, tolerating it already existing.
func (s *Service) ensureIndex(ctx context.Context, client search.Client, index string) error {
	err := client.CreateIndex(ctx, index)
	if err == nil || search.KindOf(err) == search.KindConflict {
		return nil
	}
	return fmt.Errorf("failed to create index %s: %w", index, err)
}

func (s *Service) fail(ctx context.Context, taskID, taskType string, err error) {
	s.logger.Error("task failed", "task_id", taskID, "type", taskType, "error", err)
	s.tasks.Fail(taskID, err)

	payload, _ := json.Marshal(FailedEvent{TaskID: taskID, Type: taskType, Error: err.Error()})
	if pubErr := s.publisher.Publish(ctx, utils.SubjectTaskFailed, payload); pubErr != nil {
		s.logger.Warn("failed to publish task failure event", "error", pubErr)
	}
}

func (s *Service) publishCompleted(ctx context.Context, event CompletedEvent) {
	payload, _ := json.Marshal(event)
	if err := s.publisher.Publish(ctx, utils.SubjectIngestCompleted, payload); err != nil {
		s.logger.Warn("failed to publish ingest completion event", "error", err)
	}
}

// DocumentID derives the deterministic document id for a line. Re-ingesting
// the same line overwrites instead of duplicating.
func DocumentID(line string) string {
	sum := sha1.Sum([]byte(line))
	return hex.EncodeToString(sum[:])
}

func countLines(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var n uint64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if strings.TrimRight(scanner.Text(), "\r") != "" {
			n++
		}
	}
	return n, scanner.Err()
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func moveFile(fromDir, toDir, name string) error {
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(fromDir, name), filepath.Join(toDir, name))
}

// validFilename rejects names that could escape the ingest directories.
func validFilename(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid filename: %s", name)
	}
	return nil
}
