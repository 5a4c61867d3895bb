package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/docindex/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentNamePrefix = "docname"
	documentVerPrefix  = "docver"
	documentIDSeq      = "docrecseq"
	chunkPrefix        = "chkrec"
	chunkSeqPrefix     = "chkpos"
	chunkIDSeq         = "chkrecseq"
	jobPrefix          = "jobrec"
	jobDocPrefix       = "jobdoc"
	jobIDSeq           = "jobrecseq"
	vectorPrefix       = "vecrec"
	vectorDimsKey      = "vecdims"
	lexicalTermPrefix  = "lexterm"
	lexicalLenPrefix   = "lexlen"
	lexicalDocPrefix   = "lexdoc"
	lexicalStatsKey    = "lexstats"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.DocumentID) []byte {
	return composite(documentPrefix, uint64(id))
}

// makeDocumentNameKey generates a key for the document name index.
func makeDocumentNameKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentNamePrefix, name))
}

// makeVersionKey generates a composite key for a document version.
// Format: prefix:docID:version, BigEndian so iteration follows version order.
func makeVersionKey(docID core.DocumentID, version int) []byte {
	return composite(documentVerPrefix, uint64(docID), uint64(version))
}

// makePartialVersionKey generates the prefix of all version keys of a document.
func makePartialVersionKey(docID core.DocumentID) []byte {
	return composite(documentVerPrefix, uint64(docID))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ChunkID) []byte {
	return composite(chunkPrefix, uint64(id))
}

// makeChunkSeqKey generates a composite key for the (document, version,
// sequence) index. The value holds the chunk ID.
func makeChunkSeqKey(docID core.DocumentID, version, sequence int) []byte {
	return composite(chunkSeqPrefix, uint64(docID), uint64(version), uint64(sequence))
}

// makePartialChunkSeqKey generates the prefix of all sequence index keys of
// one document version.
func makePartialChunkSeqKey(docID core.DocumentID, version int) []byte {
	return composite(chunkSeqPrefix, uint64(docID), uint64(version))
}

// makeJobKey generates a key for a processing job by ID.
func makeJobKey(id core.JobID) []byte {
	return composite(jobPrefix, uint64(id))
}

// makeJobDocKey generates a composite key for the per-document job index.
func makeJobDocKey(docID core.DocumentID, jobID core.JobID) []byte {
	return composite(jobDocPrefix, uint64(docID), uint64(jobID))
}

// makePartialJobDocKey generates the prefix of a document's job index keys.
func makePartialJobDocKey(docID core.DocumentID) []byte {
	return composite(jobDocPrefix, uint64(docID))
}

// makeVectorKey generates a key for a vector entry by chunk ID.
func makeVectorKey(id core.ChunkID) []byte {
	return composite(vectorPrefix, uint64(id))
}

// makeTermKey generates a composite key for one posting list entry.
// Format: prefix:term:chunkID; the term is length-delimited by the trailing
// fixed-width chunk ID, so iteration over makePartialTermKey(term) yields
// exactly that term's postings.
func makeTermKey(term string, id core.ChunkID) []byte {
	prefix := lexicalTermPrefix + ":" + term + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTermKey generates the prefix of a term's posting list.
func makePartialTermKey(term string) []byte {
	return []byte(lexicalTermPrefix + ":" + term + ":")
}

// makeLexicalLenKey generates a key for a chunk's token-length record.
func makeLexicalLenKey(id core.ChunkID) []byte {
	return composite(lexicalLenPrefix, uint64(id))
}

// makeLexicalDocKey generates a key for a chunk's indexed-term list, kept
// so postings can be removed without re-tokenizing.
func makeLexicalDocKey(id core.ChunkID) []byte {
	return composite(lexicalDocPrefix, uint64(id))
}

// composite builds prefix:id[:id...] keys with BigEndian encoded IDs so
// lexicographic sort matches numeric order.
func composite(prefix string, ids ...uint64) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8*len(ids))
	offset := copy(buf, prefixBytes)
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[offset:], id)
		offset += 8
	}
	return buf
}
