package analyzer

import "errors"

// Sentinel kinds for analyzer errors.
var (
	ErrAnalysisFailed    = errors.New("speech analysis failed")
	ErrNoAudio           = errors.New("no audio supplied")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)
