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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docindex"
	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/maintenance"
)

func main() {
	app := &cli.App{
		Name:  "docindex",
		Usage: "Hybrid retrieval index for knowledge base documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest documents into the index",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source type to record (file, web, wiki)",
						Value: "file",
					},
					&cli.BoolFlag{
						Name:  "no-wait",
						Usage: "Return immediately instead of waiting for jobs to finish",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search indexed documents",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: append(databaseFlags(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:  "class",
						Usage: "Restrict to document classes (text, code, table, markdown, config, log, mixed)",
					},
					&cli.StringSliceFlag{
						Name:  "language",
						Usage: "Restrict to document languages (ru, en)",
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Rerank results with the chat model",
					},
					&cli.BoolFlag{
						Name:  "context",
						Usage: "Include neighbouring chunks in the output",
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the state of an ingestion job",
				ArgsUsage: "JOB_ID",
				Action:    statusCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:  "document",
						Usage: "Show jobs of the named document instead",
					},
				),
			},
			{
				Name:   "gc",
				Usage:  "Purge soft-deleted chunks past the retention period",
				Action: gcCommand,
				Flags: append(databaseFlags(),
					&cli.DurationFlag{
						Name:  "retention",
						Usage: "How long retired chunks stay recoverable",
						Value: maintenance.DefaultRetention,
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Rebuild the vector index with the configured embedding model",
				Action: reembedCommand,
				Flags: append(databaseFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// databaseFlags returns the flags shared by every command that opens the
// database.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embeddings and chat",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for classification and reranking",
			Value: "qwen2.5:3b",
		},
		&cli.IntFlag{
			Name:  "embedding-dimensions",
			Usage: "Dimensionality of the embedding model output",
			Value: 768,
		},
	}
}

// openDatabase builds the AI configuration from flags and opens the
// database.
func openDatabase(c *cli.Context) (*docindex.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingDimensions(c.Int("embedding-dimensions")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := docindex.NewDatabase(c.String("db"), docindex.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	source := core.SourceType(c.String("source"))
	if !source.Valid() {
		return fmt.Errorf("invalid source type %q", c.String("source"))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	ctx := context.Background()
	jobs := make([]*core.ProcessingJob, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		job, err := pipeline.Ingest(ctx, ingestion.IngestRequest{
			Name:    filepath.Base(path),
			Source:  source,
			Content: string(content),
		})
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		fmt.Printf("job %d: %s (%s)\n", job.Id, filepath.Base(path), job.Status)
		jobs = append(jobs, job)
	}

	if c.Bool("no-wait") {
		return nil
	}

	for _, job := range jobs {
		final, err := waitForJob(ctx, pipeline, job.Id)
		if err != nil {
			return err
		}
		printJob(final)
		if final.Status == core.JobFailed {
			return fmt.Errorf("ingestion failed: %s", final.Error)
		}
	}
	return nil
}

// waitForJob polls until the job reaches a terminal status.
func waitForJob(ctx context.Context, pipeline *ingestion.Pipeline, jobID core.JobID) (*core.ProcessingJob, error) {
	for {
		job, err := pipeline.Job(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to read job %d: %w", jobID, err)
		}
		if job.Status.Terminal() {
			return job, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	filters := core.SearchFilters{
		Languages: c.StringSlice("language"),
	}
	for _, class := range c.StringSlice("class") {
		parsed, ok := core.ParseClass(class)
		if !ok {
			return fmt.Errorf("invalid class %q", class)
		}
		filters.Classes = append(filters.Classes, parsed)
	}

	rerank := c.Bool("rerank")
	results, err := searcher.Search(context.Background(), &core.SearchRequest{
		Query:          query,
		TopK:           c.Int("top-k"),
		Filters:        filters,
		IncludeContext: c.Bool("context"),
		Rerank:         &rerank,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: chunk %d doc %d [%0.4f] (vector #%d, lexical #%d)\n",
			i+1, hit.Chunk.Id, hit.Chunk.DocumentId, hit.Score, hit.VectorRank, hit.LexicalRank)
		fmt.Printf("   %s\n", excerpt(hit.Chunk.Content, 160))
		if hit.Previous != nil {
			fmt.Printf("   prev: %s\n", excerpt(hit.Previous.Content, 80))
		}
		if hit.Next != nil {
			fmt.Printf("   next: %s\n", excerpt(hit.Next.Content, 80))
		}
	}
	return nil
}

// excerpt returns the first maxRunes runes of s on a single line.
func excerpt(s string, maxRunes int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

func statusCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	if name := c.String("document"); name != "" {
		doc, err := db.DocumentRepository().GetDocumentByName(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to find document %q: %w", name, err)
		}
		jobs, err := db.JobRepository().ListJobsByDocument(ctx, doc.Id)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		fmt.Printf("document %d %q: version %d, class %s\n", doc.Id, doc.Name, doc.CurrentVersion, doc.Class)
		for _, job := range jobs {
			printJob(job)
		}
		return nil
	}

	if c.NArg() != 1 {
		return fmt.Errorf("a job ID or --document is required")
	}
	jobID, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job ID %q", c.Args().First())
	}

	job, err := db.JobRepository().GetJob(ctx, core.JobID(jobID))
	if err != nil {
		return fmt.Errorf("failed to read job %d: %w", jobID, err)
	}
	printJob(job)
	return nil
}

func printJob(job *core.ProcessingJob) {
	line := fmt.Sprintf("job %d: %s, stage %s, %.0f%%", job.Id, job.Status, job.Stage, job.Progress*100)
	if job.Error != "" {
		line += fmt.Sprintf(", error: %s", job.Error)
	}
	fmt.Println(line)
}

func gcCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	collector, err := db.NewCollector(maintenance.WithRetention(c.Duration("retention")))
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}

	purged, err := collector.Run(context.Background())
	if err != nil {
		return fmt.Errorf("gc failed: %w", err)
	}
	fmt.Printf("Purged %d chunks\n", purged)
	return nil
}

func reembedCommand(c *cli.Context) error {
	config := &maintenance.ReembedConfig{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reembedder, err := db.NewReembedder(config, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
