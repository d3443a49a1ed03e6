package app

import "errors"

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrTopicNotFound           = errors.New("topic not found")
	ErrNoChunks                = errors.New("no chunks found for topic")
	ErrMergeInProgress         = errors.New("a merge for this topic is already running")
	ErrVectorSearchUnavailable = errors.New("vector search is unavailable")
)
