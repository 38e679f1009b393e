package dtos

import (
	"time"

	"ga4gh/loader/models/ingest"
)

type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}

type GeneralError struct {
	Message string `json:"message"`
}

type ExportResponseDto struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Stats   ingest.ExportStats `json:"stats"`
}
