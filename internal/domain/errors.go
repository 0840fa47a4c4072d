package domain

import "errors"

var (
	ErrNotConnected         = errors.New("database not connected, check the storage configuration")
	ErrStorageQuotaExceeded = errors.New("storage is full")
	ErrClientNotFound       = errors.New("client not found")
	ErrInvalidClient        = errors.New("invalid client")
	ErrAdNotFound           = errors.New("ad not found for client")
	ErrNoFiles              = errors.New("no files supplied")
	ErrUnsupportedCreative  = errors.New("creative must be an image or a video")
	ErrUnknownFormat        = errors.New("creative format group could not be determined")
	ErrInvalidDateRange     = errors.New("invalid date range")
	ErrAnalysisFailed       = errors.New("creative analysis failed")
	ErrEmptyReport          = errors.New("report is empty or unreadable")
)
