package ingest

import (
	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

type IngestRequest struct {
	Id        uuid.UUID  `json:"id"`
	Filename  string     `json:"filename"`
	State     State      `json:"state"`
	Message   string     `json:"message"`
	Stats     *FileStats `json:"stats,omitempty"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

type IngestResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}

// FileStats summarizes the ingestion of one file.
type FileStats struct {
	Filename     string `json:"filename"`
	Workflow     string `json:"workflow"`
	VariantSetId uint32 `json:"variantSetId"`
	CallSetId    uint32 `json:"callSetId"`
	Records      int    `json:"records"`
	Calls        int    `json:"calls"`
	NewVariants  int    `json:"newVariants"`
	Warnings     int    `json:"warnings"`
	Skipped      int    `json:"skipped"`
}

// ExportStats counts the documents handed to the downstream writer.
type ExportStats struct {
	Variants    int `json:"variants"`
	Calls       int `json:"calls"`
	VariantSets int `json:"variantSets"`
	CallSets    int `json:"callSets"`
}

// StoreStats is a snapshot of the identity and aggregation stores.
type StoreStats struct {
	Variants    int    `json:"variants"`
	Calls       uint64 `json:"calls"`
	VariantSets int    `json:"variantSets"`
	CallSets    int    `json:"callSets"`
	NextVariant uint64 `json:"nextVariantId"`
}
