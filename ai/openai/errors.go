package openai

import "errors"

var (
	// ErrUnknownLabel indicates the model returned a class label outside the
	// known set.
	ErrUnknownLabel = errors.New("unknown class label")

	// ErrNoResponse indicates the model returned no choices.
	ErrNoResponse = errors.New("no response from model")
)
