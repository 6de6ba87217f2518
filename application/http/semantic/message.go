package semantic

import (
	"io"
	"strconv"

	"http-toolkit/application/http"
	"http-toolkit/application/http/stream"
	"http-toolkit/application/http/transfer"
	iolib "http-toolkit/lib/io"

	"github.com/pkg/errors"
)

const DefaultProtocolVersion = "1.1"

// Message is the immutable part shared by requests and responses.
// Every With* method returns a modified copy and leaves the receiver untouched.
// Copies share unmodified headers and the body stream.
type Message struct {
	protocol string
	headers  Headers
	body     *stream.Stream
}

// ProtocolVersion returns the version without "HTTP/" prefix. e.g. "1.1"
func (m Message) ProtocolVersion() string {
	if m.protocol == "" {
		return DefaultProtocolVersion
	}
	return m.protocol
}

func (m Message) WithProtocolVersion(version string) (Message, error) {
	if version == m.ProtocolVersion() {
		return m, nil
	}
	if _, err := http.ParseProtocolVersion(version); err != nil {
		return Message{}, errors.Wrap(err, "invalid protocol version")
	}

	m.protocol = version
	return m, nil
}

func (m Message) version() http.Version {
	ver, err := http.ParseProtocolVersion(m.ProtocolVersion())
	if err != nil {
		return http.Version1_1
	}
	return ver
}

func (m Message) Headers() Headers { return m.headers }

func (m Message) Header(name string) []string { return m.headers.Values(name) }

func (m Message) HasHeader(name string) bool { return m.headers.Has(name) }

// HeaderLine returns values of the header joined with ", ".
// Empty string is returned when the header is absent.
func (m Message) HeaderLine(name string) string { return m.headers.Line(name) }

func (m Message) WithHeader(name string, values ...string) (Message, error) {
	h, err := m.headers.With(name, values...)
	if err != nil {
		return Message{}, err
	}

	m.headers = h
	return m, nil
}

func (m Message) WithAddedHeader(name string, values ...string) (Message, error) {
	h, err := m.headers.WithAdded(name, values...)
	if err != nil {
		return Message{}, err
	}

	m.headers = h
	return m, nil
}

func (m Message) WithoutHeader(name string) Message {
	m.headers = m.headers.Without(name)
	return m
}

func (m Message) WithHeaders(h Headers) Message {
	m.headers = h
	return m
}

// Body returns the body stream.
// An empty in-memory stream is created when there is no body.
func (m Message) Body() *stream.Stream {
	if m.body == nil {
		return stream.NewString("")
	}
	return m.body
}

func (m Message) HasBody() bool { return m.body != nil }

// WithBody returns the message as-is if body is identical to the current one.
func (m Message) WithBody(body *stream.Stream) Message {
	if m.body == body {
		return m
	}

	m.body = body
	return m
}

// ContentLength returns the declared body length.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6
func (m Message) ContentLength() (uint64, bool, error) {
	return extractContentLength(m.headers)
}

// TransferCodings returns the codings of Transfer-Encoding in applied order.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1
func (m Message) TransferCodings() []transfer.Coding {
	return transfer.ParseCodings(m.headers.Tokens("Transfer-Encoding"))
}

func (m Message) IsChunked() bool {
	codings := m.TransferCodings()
	if len(codings) == 0 {
		return false
	}
	return codings[len(codings)-1] == transfer.CodingChunked
}

type ParseMessageOptions struct {
	RequiredFields []string
}

// messageFromWire creates message from decoded message head and its body.
// Body is limited by Content-Length unless transfer coding is applied.
func messageFromWire(
	ver http.Version,
	fields []http.Field,
	body io.Reader,
	opts ParseMessageOptions,
) (Message, error) {
	msg := Message{
		protocol: ver.Protocol(),
		headers:  HeadersFrom(fields),
	}

	if err := assertHeaderContains(msg.headers, opts.RequiredFields); err != nil {
		return Message{}, errors.Wrap(err, "header has missing fields")
	}

	length, hasLength, err := extractContentLength(msg.headers)
	if err != nil {
		return Message{}, errors.Wrap(err, "extracting content length")
	}

	if body != nil {
		if hasLength && !msg.headers.Has("Transfer-Encoding") {
			body = iolib.LimitReader(body, length)
		}
		msg.body = stream.NewReader(body)
	}

	return msg, nil
}

func assertHeaderContains(h Headers, keys []string) error {
	missing := make([]string, 0)
	for _, key := range keys {
		if !h.Has(key) {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("missing key(s): %s", missing)
	}

	return nil
}

func extractContentLength(h Headers) (uint64, bool, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}

	// Any value greater than or equal to 0 is valid.
	// But let's restrict it to 64bit uint.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-10
	length, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse Content-Length")
	}

	return length, true, nil
}
