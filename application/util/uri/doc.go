// Package uri implements RFC 3986 URI references as immutable values:
// parsing, normalization, composition and reference resolution.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986
package uri
