package xnb

import (
	"context"
	"errors"
	"fmt"

	"github.com/32bitkid/xnb/audio"
	"github.com/32bitkid/xnb/decompression"
	"github.com/32bitkid/xnb/resource"
	"github.com/32bitkid/xnb/wavebank"
)

// Kind is the outcome of converting one file.
type Kind uint8

const (
	KindSuccess Kind = iota
	// KindSkipped is a well formed input this tool has no codec for, or one
	// whose asset type is excluded.
	KindSkipped
	KindFormat
	KindDecompression
	KindIO
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindSkipped:
		return "Skipped"
	case KindFormat:
		return "Format"
	case KindDecompression:
		return "Decompression"
	case KindIO:
		return "IO"
	case KindCanceled:
		return "Canceled"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

var (
	// ErrUnsupportedInput is returned for input files of an unknown type.
	ErrUnsupportedInput = errors.New("xnb: unsupported input file type")
	// ErrExcluded is returned for assets whose type the configuration leaves
	// out.
	ErrExcluded = errors.New("xnb: asset type excluded")
)

var formatErrors = []error{
	resource.ErrFormat,
	audio.ErrFormat,
	wavebank.ErrFormat,
	wavebank.ErrCompact,
	wavebank.ErrCodec,
}

// Classify maps an error from Extract or Convert to its kind. Errors that are
// not recognised as format or decompression failures are treated as I/O.
func Classify(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var unsupported *resource.UnsupportedAssetError
	if errors.As(err, &unsupported) || errors.Is(err, ErrUnsupportedInput) || errors.Is(err, ErrExcluded) {
		return KindSkipped
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	if errors.Is(err, decompression.ErrCorrupt) {
		return KindDecompression
	}
	for _, target := range formatErrors {
		if errors.Is(err, target) {
			return KindFormat
		}
	}
	return KindIO
}

// Result reports the outcome of one FilePair.
type Result struct {
	Pair     FilePair
	Kind     Kind
	Err      error
	Outputs  []string
	Warnings []string
}

func newResult(pair FilePair, outputs []string, err error) Result {
	return Result{Pair: pair, Kind: Classify(err), Err: err, Outputs: outputs}
}
