package services

import "errors"

// Analysis service errors
var (
	ErrUnknownChart = errors.New("unknown chart")
	ErrNoResult     = errors.New("no analysis result")
)
