package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"basin-research-platform/internal/logger"
	"basin-research-platform/services"
)

const TaskDocumentIngest = "document:ingest"

type DocumentIngestPayload struct {
	PaperID  string `json:"paper_id"`
	Filename string `json:"filename"`
}

// NewDocumentIngestTask builds the ingestion task for one uploaded paper.
// Ingestion owns the critical queue: a paper that never gets indexed is
// invisible to every query.
func NewDocumentIngestTask(paperID, filename string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentIngestPayload{
		PaperID:  paperID,
		Filename: filename,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskDocumentIngest,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor dispatches queue tasks to the owning services.
type TaskProcessor struct {
	ingest *services.IngestService
}

func NewTaskProcessor(ingest *services.IngestService) *TaskProcessor {
	return &TaskProcessor{ingest: ingest}
}

func (p *TaskProcessor) HandleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var payload DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing document", "paper_id", payload.PaperID, "filename", payload.Filename)

	if err := p.ingest.IngestPaper(ctx, payload.PaperID); err != nil {
		if errors.Is(err, services.ErrPaperNotFound) {
			// The record was deleted after enqueue, retrying cannot help.
			logger.Warn("Paper vanished before ingestion", "paper_id", payload.PaperID)
			return asynq.SkipRetry
		}
		return err
	}
	return nil
}
