package semantic

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodPatch   Method = "PATCH" // RFC 5789

	// WebDAV and cache extensions.
	MethodCopy     Method = "COPY"
	MethodLink     Method = "LINK"
	MethodUnlink   Method = "UNLINK"
	MethodLock     Method = "LOCK"
	MethodUnlock   Method = "UNLOCK"
	MethodPropfind Method = "PROPFIND"
	MethodPurge    Method = "PURGE"
	MethodView     Method = "VIEW"
)

var methods = []Method{
	MethodGet, MethodHead, MethodPost, MethodPut, MethodDelete,
	MethodConnect, MethodOptions, MethodTrace, MethodPatch,
	MethodCopy, MethodLink, MethodUnlink, MethodLock, MethodUnlock,
	MethodPropfind, MethodPurge, MethodView,
}

// ParseMethod looks s up in the supported method set, ignoring case.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(s))
	for _, known := range methods {
		if m == known {
			return m, nil
		}
	}
	return "", errors.Errorf("unsupported method: %q", s)
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.2.1-3
func DefaultSafeMethods() []Method {
	return []Method{
		MethodGet, MethodHead, MethodOptions, MethodTrace,
	}
}

const (
	// Preferred format: IMF-fixdate
	imfFixDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
	// Obsolete RFC 850 format
	rfc850DateFormat = time.RFC850
	// Obsolete asctime format
	asctimeDateFormat = time.ANSIC
)

// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.7
func ParseDate(raw string) (time.Time, error) {
	layouts := []string{time.RFC1123, rfc850DateFormat, asctimeDateFormat}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid time format: %q", raw)
}

// FormatDate formats t as IMF-fixdate.
func FormatDate(t time.Time) string {
	return t.UTC().Format(imfFixDateFormat)
}
