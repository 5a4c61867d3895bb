// Package ingestion provides pipeline orchestration for document processing.
//
// The Pipeline type manages the ingestion workflow for documents:
//   - Classifying content into a document class
//   - Chunking with the class-specific strategy
//   - Embedding chunk contents in batches
//   - Indexing into the vector and lexical indexes
//   - Committing the new document version atomically
//
// Each accepted document runs as a tracked job on a worker pool. Job records
// expose status, stage and monotone progress. Ingestion for one document is
// serialized; distinct documents process concurrently. Jobs can be cancelled
// between stages and a failed or cancelled job never leaves a partially
// visible version: readers keep the previous version until the commit lands.
package ingestion
