// Package http holds the HTTP/1.1 wire model: start lines, header fields,
// and the encoders and decoders moving messages between them and byte streams.
// Semantics of messages live in package semantic.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
