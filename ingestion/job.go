// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"time"

	"github.com/poiesic/docindex/ai/heuristic"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// Job stage names, in execution order.
const (
	StageReceived    = "received"
	StageClassifying = "classifying"
	StageChunking    = "chunking"
	StageEmbedding   = "embedding"
	StageIndexing    = "indexing"
	StageCompleted   = "completed"
)

// Progress checkpoints per stage. Embedding progress interpolates between
// its bounds as batches complete; progress never decreases within a job.
const (
	progressClassifying    = 0.10
	progressChunking       = 0.25
	progressEmbeddingStart = 0.35
	progressEmbeddingEnd   = 0.80
	progressIndexing       = 0.90
)

// process runs the per-document state machine. Cancellation is observed at
// stage boundaries only; a cancelled or failed job leaves the previous
// document version fully queryable.
func (p *Pipeline) process(ctx context.Context, jobID core.JobID, doc *core.Document, req IngestRequest) {
	// Job status writes use a background context so a cancelled job can
	// still record its terminal state.
	bg := context.Background()

	if err := p.advance(bg, jobID, StageClassifying, progressClassifying); err != nil {
		p.logger.Error("failed to update job", "job", jobID, "err", err)
		return
	}

	class, language := p.classify(ctx, req)

	if err := p.checkpoint(ctx, bg, jobID, StageChunking, progressChunking); err != nil {
		return
	}

	chunks, err := p.chunker.Chunk(req.Content, class)
	if err != nil {
		p.fail(bg, jobID, StageChunking, err)
		return
	}

	if err := p.checkpoint(ctx, bg, jobID, StageEmbedding, progressEmbeddingStart); err != nil {
		return
	}

	vectors, err := p.embedChunks(ctx, bg, jobID, chunks)
	if err != nil {
		p.fail(bg, jobID, StageEmbedding, err)
		return
	}

	if err := p.checkpoint(ctx, bg, jobID, StageIndexing, progressIndexing); err != nil {
		return
	}

	if err := p.index(ctx, doc, req, class, language, chunks, vectors); err != nil {
		p.fail(bg, jobID, StageIndexing, err)
		return
	}

	p.complete(bg, jobID)
	p.logger.Info("document ingested",
		"document", doc.Id,
		"version", doc.CurrentVersion,
		"chunks", len(chunks))
}

// classify determines the document class and language. Classification
// never fails ingestion: provider errors degrade to the heuristic path and
// an unknown label maps to the mixed class.
func (p *Pipeline) classify(ctx context.Context, req IngestRequest) (core.DocumentClass, string) {
	sample := req.Content
	label, err := p.provider.Classifier().Classify(ctx, req.Name, sample)
	if err != nil {
		p.logger.Warn("classification failed, treating as mixed", "name", req.Name, "err", err)
		label = ""
	}
	class, ok := core.ParseClass(label)
	if !ok && err == nil {
		p.logger.Debug("unknown class label, treating as mixed", "label", label)
	}
	return class, heuristic.DetectLanguage(req.Content)
}

// embedChunks embeds chunk contents in batches, normalizing each vector
// for cosine scoring. Each batch is retried with backoff before failing
// the stage. Progress advances proportionally per batch.
func (p *Pipeline) embedChunks(ctx, bg context.Context, jobID core.JobID, chunks []core.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	total := len(chunks)

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}

		var batch [][]float32
		err := RetryWithBackoff(ctx, func() error {
			var embedErr error
			batch, embedErr = p.provider.Embedder().EmbedTexts(ctx, texts)
			return embedErr
		}, p.retryAttempt, p.retryDelay)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, core.ErrProvider
		}

		for _, vector := range batch {
			vectors = append(vectors, storage.NormalizeVector(vector))
		}

		fraction := float64(end) / float64(total)
		progress := progressEmbeddingStart + fraction*(progressEmbeddingEnd-progressEmbeddingStart)
		// A lost progress update is not worth failing the batch over.
		if err := p.advance(bg, jobID, StageEmbedding, progress); err != nil {
			p.logger.Error("failed to update job", "job", jobID, "err", err)
		}
	}

	return vectors, nil
}

// index stages the new chunks and vectors invisibly, then commits the
// version switch as one transaction. Readers see the old version in full
// until the commit lands.
func (p *Pipeline) index(ctx context.Context, doc *core.Document, req IngestRequest, class core.DocumentClass, language string, chunks []core.Chunk, vectors [][]float32) error {
	newVersion := doc.CurrentVersion + 1
	now := time.Now().UTC()

	staged := make([]*core.Chunk, len(chunks))
	for i := range chunks {
		chunk := chunks[i]
		chunk.DocumentId = doc.Id
		chunk.Version = newVersion
		chunk.Class = class
		chunk.Metadata.Language = language
		chunk.Deleted = true // invisible until commit
		staged[i] = &chunk
	}
	staged, err := p.stores.Chunks.AddChunks(ctx, staged...)
	if err != nil {
		return err
	}

	entries := make([]*storage.VectorEntry, len(staged))
	for i, chunk := range staged {
		entries[i] = &storage.VectorEntry{
			ChunkId:    chunk.Id,
			Vector:     vectors[i],
			DocumentId: doc.Id,
			Version:    newVersion,
			Class:      class,
			Language:   language,
			Deleted:    true,
			CreatedAt:  now,
		}
	}
	if err := p.stores.Vectors.UpsertVectors(ctx, entries...); err != nil {
		return err
	}

	if err := p.stores.Lexical.IndexChunks(ctx, staged...); err != nil {
		return err
	}

	var retire []core.ChunkID
	if doc.CurrentVersion > 0 {
		previous, err := p.stores.Chunks.ListChunks(ctx, doc.Id, doc.CurrentVersion, false)
		if err != nil {
			return err
		}
		for _, chunk := range previous {
			retire = append(retire, chunk.Id)
		}
	}

	activate := make([]core.ChunkID, len(staged))
	for i, chunk := range staged {
		activate[i] = chunk.Id
	}

	updated := *doc
	updated.ContentHash = core.HashContent(req.Content)
	updated.Class = class
	updated.Language = language
	updated.CurrentVersion = newVersion
	if req.Source != "" {
		updated.Source = req.Source
	}

	commit := &storage.VersionCommit{
		Document: &updated,
		Version: &core.DocumentVersion{
			DocumentId:  doc.Id,
			Version:     newVersion,
			ContentHash: updated.ContentHash,
			ChunkCount:  len(staged),
			CreatedAt:   now,
		},
		Activate: activate,
		Retire:   retire,
	}
	if err := p.stores.Documents.CommitVersion(ctx, commit); err != nil {
		return err
	}

	*doc = updated
	return nil
}

// checkpoint observes cancellation at a stage boundary, then advances the
// job to the next stage.
func (p *Pipeline) checkpoint(ctx, bg context.Context, jobID core.JobID, stage string, progress float64) error {
	if err := ctx.Err(); err != nil {
		p.fail(bg, jobID, stage, err)
		return err
	}
	if err := p.advance(bg, jobID, stage, progress); err != nil {
		p.logger.Error("failed to update job", "job", jobID, "err", err)
		return err
	}
	return nil
}

// advance moves the job forward. Progress is clamped monotone.
func (p *Pipeline) advance(ctx context.Context, jobID core.JobID, stage string, progress float64) error {
	job, err := p.stores.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = core.JobProcessing
	job.Stage = stage
	if progress > job.Progress {
		job.Progress = progress
	}
	return p.stores.Jobs.UpdateJob(ctx, job)
}

func (p *Pipeline) fail(ctx context.Context, jobID core.JobID, stage string, cause error) {
	job, err := p.stores.Jobs.GetJob(ctx, jobID)
	if err != nil {
		p.logger.Error("failed to load job for failure update", "job", jobID, "err", err)
		return
	}
	job.Status = core.JobFailed
	job.Stage = stage
	job.Error = cause.Error()
	if err := p.stores.Jobs.UpdateJob(ctx, job); err != nil {
		p.logger.Error("failed to record job failure", "job", jobID, "err", err)
	}
	p.logger.Warn("ingestion failed", "job", jobID, "stage", stage, "err", cause)
}

func (p *Pipeline) complete(ctx context.Context, jobID core.JobID) {
	job, err := p.stores.Jobs.GetJob(ctx, jobID)
	if err != nil {
		p.logger.Error("failed to load job for completion", "job", jobID, "err", err)
		return
	}
	job.Status = core.JobCompleted
	job.Stage = StageCompleted
	job.Progress = 1.0
	if err := p.stores.Jobs.UpdateJob(ctx, job); err != nil {
		p.logger.Error("failed to record job completion", "job", jobID, "err", err)
	}
}
