package convert

import (
	"errors"
	"fmt"
)

var (
	ErrConverterMissing = errors.New("convert: converter not installed")
	ErrConverterFailed  = errors.New("convert: converter failed")
	ErrUnreadableOutput = errors.New("convert: unreadable output")
	ErrUnreadableSource = errors.New("convert: unreadable source document")
)

// ConversionError is fatal for the document being converted.
type ConversionError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func conversionError(op, path string, sentinel, cause error) error {
	if cause == nil {
		return &ConversionError{Op: op, Path: path, Err: sentinel}
	}
	return &ConversionError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}
