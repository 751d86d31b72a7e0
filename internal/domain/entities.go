package domain

// Table is tabular data extracted from a page. Rows are ordered and
// row cells are ordered.
type Table struct {
	ID   string
	Rows [][]string
}

// Page is the immutable input unit produced by the external parser.
type Page struct {
	ID     string
	Text   string
	Tables []Table
}

// Document describes the source document a set of pages came from.
type Document struct {
	ID         string
	Filename   string
	TotalPages int
}

// ParsedDocument is the complete output of the external text-extraction
// collaborator for one document.
type ParsedDocument struct {
	Document Document
	Pages    []Page
}

// PageIndex maps a page to its offset range in the concatenated
// document text. Never mutated after creation.
type PageIndex struct {
	PageID     string
	StartIndex int
	EndIndex   int
}

// StructuralRun is a maximal span of concatenated-document text sharing
// the same (part, chapter, section) labels. Empty label means the
// heading was never seen. StartIndex/EndIndex are absolute offsets into
// the concatenated text; runs are contiguous and non-overlapping.
type StructuralRun struct {
	Part       string
	Chapter    string
	Section    string
	Text       string
	StartIndex int
	EndIndex   int
}

// SourceKind distinguishes where a chunk's text came from.
type SourceKind string

const (
	SourceText  SourceKind = "text"
	SourceTable SourceKind = "table"
)

// Chunk is a bounded, addressable unit of document text. SubChunk is 0
// for a chunk that holds a whole paragraph and 1..N when a paragraph
// was split by the token ceiling. The [StartIndex, EndIndex) span is
// canonical and non-overlapping with sibling chunks; overlap context
// and bound tables live only in Text.
type Chunk struct {
	ID         string
	DocID      string
	Text       string
	Part       string
	Chapter    string
	Section    string
	SubChunk   int
	StartIndex int
	EndIndex   int
	PageIDs    []string
	TableIDs   []string
	SourceKind SourceKind
}

// QueryPlan is the fan-out produced for one user query. Queries always
// contains the original query. Synthesis is consulted only when the
// fan-out under-delivers.
type QueryPlan struct {
	Original  string
	Queries   []string
	Synthesis string
}

// RetrievedCandidate is one result from the vector-search collaborator.
// The pipeline treats it as opaque except for ChunkID (dedup key),
// Metadata["document_id"]/Metadata["source"] (filter keys) and
// Similarity/Embedding (rank keys).
type RetrievedCandidate struct {
	ChunkID    string
	RawText    string
	Similarity float64
	Embedding  []float32
	Metadata   map[string]string
}

// AssembledContext is the budget-constrained context string handed to
// the generative model.
type AssembledContext struct {
	Text       string
	ChunksUsed int
	TokensUsed int
}

// Answer is the final response for one question.
type Answer struct {
	Text       string
	ChunksUsed int
}

// Stats summarizes the chunk store contents.
type Stats struct {
	TotalDocs   int
	TotalChunks int
}
