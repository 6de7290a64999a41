package domain

import "time"

type SourceStatus string

const (
	StatusRegistered SourceStatus = "registered"
	StatusIndexing   SourceStatus = "indexing"
	StatusIndexed    SourceStatus = "indexed"
	StatusFailed     SourceStatus = "failed"
)

// SourceRecord is the ledger entry for one ingested source file.
type SourceRecord struct {
	Path        string       `json:"path"`
	ContentHash string       `json:"content_hash"`
	Pages       int          `json:"pages"`
	Chunks      int          `json:"chunks"`
	Status      SourceStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Page is a unit of extracted text. PDF pages are 1-based; plain-text
// sources use page 0, spreadsheet sources one page per sheet.
type Page struct {
	Number int
	Text   string
}

// Chunk is the retrieval unit produced by the population pipeline.
// ID is "source:page:index" and stays stable across runs for unchanged input.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Hash   string `json:"hash"`
}

// PopulateReport summarizes one population run.
type PopulateReport struct {
	SourcesIndexed  int `json:"sources_indexed"`
	SourcesSkipped  int `json:"sources_skipped"`
	ChunksAdded     int `json:"chunks_added"`
	ChunksUpdated   int `json:"chunks_updated"`
	ChunksUnchanged int `json:"chunks_unchanged"`
}
