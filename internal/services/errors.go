package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrResolution      = errors.New("source resolution failed")
	ErrProbe           = errors.New("probe failed")
	ErrDecode          = errors.New("decode failed")
	ErrConfigInvariant = errors.New("config invariant violation")
	ErrIO              = errors.New("pipe i/o failure")
	ErrOutput          = errors.New("output failure")
	ErrConfiguration   = errors.New("configuration error")
)

// Wrap builds an error message that includes scope context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	detail := buildDetail(scope, operation, message)
	if marker == nil {
		marker = ErrDecode
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable label for the failure class of err, suitable for
// reports and the history ledger. Pipe failures surface as decode failures
// because dependents only observe the broken source.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfigInvariant):
		return "config_invariant"
	case errors.Is(err, ErrResolution):
		return "resolution"
	case errors.Is(err, ErrProbe):
		return "probe"
	case errors.Is(err, ErrDecode), errors.Is(err, ErrIO):
		return "decode"
	case errors.Is(err, ErrOutput):
		return "output"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "failed"
	}
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "import failure"
	}
	return strings.Join(parts, ": ")
}
