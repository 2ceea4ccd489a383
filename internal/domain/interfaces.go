package domain

import (
	"context"
	"time"
)

// Fixed retrieval parameters sent with every upload and question.
// They are independent of the comparison filters.
const (
	DefaultChunkSize = 300
	DefaultTopK      = 3
)

// Credential is the bearer token returned by the auth service.
// An empty token means the session is unauthenticated.
type Credential struct {
	Token     string
	TokenType string
}

// Document is a file selected for upload.
type Document struct {
	Path string
}

// QueryRequest is a question plus its retrieval parameters.
type QueryRequest struct {
	Text      string `json:"query" validate:"required"`
	TopK      int    `json:"top_k" validate:"gt=0"`
	ChunkSize int    `json:"chunk_size" validate:"gt=0"`
}

// NewQueryRequest builds a request with the fixed retrieval parameters.
func NewQueryRequest(text string) QueryRequest {
	return QueryRequest{Text: text, TopK: DefaultTopK, ChunkSize: DefaultChunkSize}
}

// QueryResult is the answer and the passages that supported it.
type QueryResult struct {
	Answer            string
	Passages          []string
	RetrievalLatency  float64
	GenerationLatency float64
	TotalLatency      float64
	ContextLength     int
	TopK              int
}

// UploadReceipt summarizes what the ingestion service did with a document.
type UploadReceipt struct {
	Status            string
	ChunksCreated     int
	TotalVectors      int
	ProcessingLatency float64
}

// Experiment is one recorded query execution from the metrics store.
type Experiment struct {
	ID                int64
	Query             string
	ChunkSize         int
	TopK              int
	RetrievalLatency  float64
	GenerationLatency float64
	TotalLatency      float64
	ContextLength     int
	Timestamp         string
}

// ComparisonRow is the server-side average latency for one chunk size / top-k group.
type ComparisonRow struct {
	ChunkSize       int
	TopK            int
	AvgTotalLatency float64
}

// Filters constrains the comparison view. Nil fields are not sent.
type Filters struct {
	ChunkSize *int
	TopK      *int
}

// IsZero reports whether no constraint is set.
func (f Filters) IsZero() bool { return f.ChunkSize == nil && f.TopK == nil }

// GroupingMode selects how comparison rows are labeled.
type GroupingMode int

const (
	ByTopK GroupingMode = iota
	ByChunkSize
)

func (m GroupingMode) String() string {
	if m == ByChunkSize {
		return "chunk size"
	}
	return "top-k"
}

// Toggle returns the other grouping mode.
func (m GroupingMode) Toggle() GroupingMode {
	if m == ByChunkSize {
		return ByTopK
	}
	return ByChunkSize
}

// LoadingFlags tracks in-flight workflows.
type LoadingFlags struct {
	Uploading bool
	Querying  bool
}

// Claims are the unverified token claims shown to the user.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (Credential, error)
}

// Backend is the remote API consumed by the client.
type Backend interface {
	Authenticator
	Upload(ctx context.Context, doc Document, chunkSize int) (UploadReceipt, error)
	Query(ctx context.Context, token string, req QueryRequest) (QueryResult, error)
	Metrics(ctx context.Context) ([]Experiment, error)
	Compare(ctx context.Context, filters Filters) ([]ComparisonRow, error)
}
