package status

import "strconv"

type Status struct {
	Code         uint
	ReasonPhrase string
}

// Informational 1XX
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.2
var (
	Continue           = add(Status{100, "Continue"})
	SwitchingProtocols = add(Status{101, "Switching Protocols"})
	Processing         = add(Status{102, "Processing"}) // WebDAV, RFC 2518
)

// Successful 2XX
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.3
var (
	OK                   = add(Status{200, "OK"})
	Created              = add(Status{201, "Created"})
	Accepted             = add(Status{202, "Accepted"})
	NonAuthoritativeInfo = add(Status{203, "Non-Authoritative Information"})
	NoContent            = add(Status{204, "No Content"})
	ResetContent         = add(Status{205, "Reset Content"})
	PartialContent       = add(Status{206, "Partial Content"})
	MultiStatus          = add(Status{207, "Multi-Status"})     // RFC 4918
	AlreadyReported      = add(Status{208, "Already Reported"}) // RFC 5842
	IMUsed               = add(Status{226, "IM Used"})          // RFC 3229
)

// Redirection 3xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.4
var (
	MultipleChoices   = add(Status{300, "Multiple Choices"})
	MovedPermanently  = add(Status{301, "Moved Permanently"})
	Found             = add(Status{302, "Found"})
	SeeOther          = add(Status{303, "See Other"})
	NotModified       = add(Status{304, "Not Modified"})
	UseProxy          = add(Status{305, "Use Proxy"})
	SwitchProxy       = add(Status{306, "Switch Proxy"}) // Unused
	TemporaryRedirect = add(Status{307, "Temporary Redirect"})
	PermanentRedirect = add(Status{308, "Permanent Redirect"})
)

// Client Error 4xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.5
var (
	BadRequest           = add(Status{400, "Bad Request"})
	Unauthorized         = add(Status{401, "Unauthorized"})
	PaymentRequired      = add(Status{402, "Payment Required"})
	Forbidden            = add(Status{403, "Forbidden"})
	NotFound             = add(Status{404, "Not Found"})
	MethodNotAllowed     = add(Status{405, "Method Not Allowed"})
	NotAcceptable        = add(Status{406, "Not Acceptable"})
	ProxyAuthRequired    = add(Status{407, "Proxy Authentication Required"})
	RequestTimeout       = add(Status{408, "Request Timeout"})
	Conflict             = add(Status{409, "Conflict"})
	Gone                 = add(Status{410, "Gone"})
	LengthRequired       = add(Status{411, "Length Required"})
	PreconditionFailed   = add(Status{412, "Precondition Failed"})
	ContentTooLarge      = add(Status{413, "Content Too Large"})
	RequestURITooLong    = add(Status{414, "Request URI TooLong"})
	UnsupportedMediaType = add(Status{415, "Unsupported Media Type"})
	RangeNotSatisfiable  = add(Status{416, "Range Not Satisfiable"})
	ExpectationFailed    = add(Status{417, "Expectation Failed"})
	ImATeapot            = add(Status{418, "I'm a teapot"}) // Unused. But I like the joke.
	MisdirectedRequest   = add(Status{421, "Misdirected Request"})
	UnprocessableContent = add(Status{422, "Unprocessable Content"})
	UpgradeRequired      = add(Status{426, "Upgrade Required"})
)

// Client Error 4xx, outside of RFC 9110.
var (
	Locked                      = add(Status{423, "Locked"})            // RFC 4918
	FailedDependency            = add(Status{424, "Failed Dependency"}) // RFC 4918
	TooEarly                    = add(Status{425, "Too Early"})         // RFC 8470
	PreconditionRequired        = add(Status{428, "Precondition Required"})
	TooManyRequests             = add(Status{429, "Too Many Requests"})
	RequestHeaderFieldsTooLarge = add(Status{431, "Request Header Fields Too Large"})
	UnavailableForLegalReasons  = add(Status{451, "Unavailable For Legal Reasons"}) // RFC 7725

	LoginTimeout                     = add(Status{440, "Login Time-out"}) // IIS
	NoResponse                       = add(Status{444, "No Response"})    // nginx
	RetryWith                        = add(Status{449, "Retry With"})     // IIS
	BlockedByWindowsParentalControls = add(Status{450, "Blocked by Windows Parental Controls"})
	RequestHeaderTooLarge            = add(Status{494, "Request Header Too Large"}) // nginx
	SSLCertificateError              = add(Status{495, "SSL Certificate Error"})
	SSLCertificateRequired           = add(Status{496, "SSL Certificate Required"})
	HTTPRequestSentToHTTPSPort       = add(Status{497, "HTTP Request Sent to HTTPS Port"})
	InvalidToken                     = add(Status{498, "Invalid Token"})
	ClientClosedRequest              = add(Status{499, "Client Closed Request"})
)

// Server Error 5xx
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.6
var (
	InternalServerError     = add(Status{500, "Internal Server Error"})
	NotImplemented          = add(Status{501, "Not Implemented"})
	BadGateway              = add(Status{502, "Bad Gateway"})
	ServiceUnavailable      = add(Status{503, "Service Unavailable"})
	GatewayTimeout          = add(Status{504, "Gateway Timeout"})
	HTTPVersionNotSupported = add(Status{505, "HTTP Version Not Supported"})
)

// Server Error 5xx, outside of RFC 9110.
var (
	VariantAlsoNegotiates         = add(Status{506, "Variant Also Negotiates"}) // RFC 2295
	InsufficientStorage           = add(Status{507, "Insufficient Storage"})    // RFC 4918
	LoopDetected                  = add(Status{508, "Loop Detected"})           // RFC 5842
	BandwidthLimitExceeded        = add(Status{509, "Bandwidth Limit Exceeded"})
	NotExtended                   = add(Status{510, "Not Extended"}) // RFC 2774
	NetworkAuthenticationRequired = add(Status{511, "Network Authentication Required"})

	// UnknownError is used for responses synthesized from transport failures.
	UnknownError          = add(Status{520, "Unknown Error"})
	WebServerIsDown       = add(Status{521, "Web Server Is Down"})
	ConnectionTimedOut    = add(Status{522, "Connection Timed Out"})
	OriginIsUnreachable   = add(Status{523, "Origin Is Unreachable"})
	TimeoutOccurred       = add(Status{524, "A Timeout Occurred"})
	SSLHandshakeFailed    = add(Status{525, "SSL Handshake Failed"})
	InvalidSSLCertificate = add(Status{526, "Invalid SSL Certificate"})
	RailgunError          = add(Status{527, "Railgun Error"})
)

var sm = make(map[uint]*Status)

func add(status Status) Status {
	sm[status.Code] = &status
	return status
}

// Lookup returns registered status of given code.
func Lookup(code uint) (Status, error) {
	s, ok := sm[code]
	if !ok {
		return Status{}, &InvalidError{Code: code}
	}

	return *s, nil
}

// FromCode returns registered status of given code, [OK] if there's none.
func FromCode(code uint) Status {
	s, ok := sm[code]
	if !ok {
		return OK
	}

	return *s
}

func (s Status) String() string {
	return strconv.FormatUint(uint64(s.Code), 10) + " " + s.ReasonPhrase
}

func (s Status) IsInformational() bool { return 100 <= s.Code && s.Code < 200 }
func (s Status) IsSuccessful() bool    { return 200 <= s.Code && s.Code < 300 }
func (s Status) IsRedirection() bool   { return 300 <= s.Code && s.Code < 400 }
func (s Status) IsClientError() bool   { return 400 <= s.Code && s.Code < 500 }
func (s Status) IsServerError() bool   { return 500 <= s.Code && s.Code < 600 }
