// Package errors turns errors into low-cardinality tags for metrics and logs.
package errors

import (
	goerrors "errors"
	"net"
	"os/exec"
	"reflect"
	"strings"

	apperrors "github.com/target/workmarket/internal/errors"
)

// Classify returns a metric tag for err, or "" for nil. In order of preference:
// the application error code (storage and context errors are mapped first),
// a few families the market sees often (network failures, sandbox processes),
// and finally the innermost concrete type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(apperrors.MapDBError(err)); code != "" {
		return string(code)
	}
	if tag := classifyKnown(err); tag != "" {
		return tag
	}
	return typeTag(innermost(err))
}

func classifyKnown(err error) string {
	var netErr net.Error
	var exitErr *exec.ExitError
	switch {
	case goerrors.As(err, &exitErr):
		return "process_exit"
	case goerrors.Is(err, exec.ErrNotFound):
		return "executable_not_found"
	case goerrors.As(err, &netErr) && netErr.Timeout():
		return "network_timeout"
	case goerrors.As(err, &netErr):
		return "network"
	}
	return ""
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// typeTag renders *pkg.Type as pkg_type.
func typeTag(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
}
