package semantic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RangeWindow is the span of bytes selected from a resource, both ends inclusive.
type RangeWindow struct {
	Start uint64
	End   uint64
	Total uint64
}

// FullWindow selects the whole resource of given size.
func FullWindow(total uint64) RangeWindow {
	if total == 0 {
		return RangeWindow{}
	}
	return RangeWindow{Start: 0, End: total - 1, Total: total}
}

// Length returns the number of bytes to be served.
func (w RangeWindow) Length() uint64 {
	if w.Total == 0 || w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// ContentRange formats the window as the value of Content-Range.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7233#section-4.2
func (w RangeWindow) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", w.Start, w.End, w.Total)
}

var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// RangeError is returned when the Range header is malformed.
type RangeError struct {
	Header string
	Err    error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("parsing range %q: %s", e.Header, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

func (e *RangeError) Cause() error { return e.Err }

const rangeUnit = "bytes"

// ResolveRange computes the window selected by the Range header against a resource of total bytes.
// Only the first range of a range set is served.
// The last position is clamped to the end of the resource,
// and the suffix form "bytes=-N" selects the final N bytes.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc7233#section-2.1
func ResolveRange(header string, total uint64) (RangeWindow, error) {
	unit, set, found := strings.Cut(strings.TrimSpace(header), "=")
	if !found || !strings.EqualFold(strings.TrimSpace(unit), rangeUnit) {
		return RangeWindow{}, &RangeError{Header: header, Err: errors.New("unsupported range unit")}
	}

	spec, _, _ := strings.Cut(set, ",")
	first, last, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return RangeWindow{}, &RangeError{Header: header, Err: errors.New("range has no '-'")}
	}

	if first == "" {
		return resolveSuffixRange(header, last, total)
	}

	start, err := parseRangePos(first)
	if err != nil {
		return RangeWindow{}, &RangeError{Header: header, Err: errors.Wrap(err, "invalid first position")}
	}
	if start >= total {
		return RangeWindow{}, errors.Wrapf(ErrRangeNotSatisfiable, "first position %d of %d bytes", start, total)
	}

	end := total - 1
	if last != "" {
		if end, err = parseRangePos(last); err != nil {
			return RangeWindow{}, &RangeError{Header: header, Err: errors.Wrap(err, "invalid last position")}
		}
		if end < start {
			return RangeWindow{}, errors.Wrapf(ErrRangeNotSatisfiable, "last position %d before first %d", end, start)
		}
		end = min(end, total-1)
	}

	return RangeWindow{Start: start, End: end, Total: total}, nil
}

func resolveSuffixRange(header, suffix string, total uint64) (RangeWindow, error) {
	n, err := parseRangePos(suffix)
	if err != nil {
		return RangeWindow{}, &RangeError{Header: header, Err: errors.Wrap(err, "invalid suffix length")}
	}
	if n == 0 || total == 0 {
		return RangeWindow{}, errors.Wrapf(ErrRangeNotSatisfiable, "suffix %d of %d bytes", n, total)
	}

	n = min(n, total)
	return RangeWindow{Start: total - n, End: total - 1, Total: total}, nil
}

func parseRangePos(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, errors.Errorf("not a position: %q", s)
	}
	return strconv.ParseUint(s, 10, 64)
}
