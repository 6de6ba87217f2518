package uri

import (
	"net/netip"

	"github.com/pkg/errors"
)

// Character classes of the generic URI syntax.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2
const (
	classUnreserved uint8 = 1 << iota
	classGenDelim
	classSubDelim
	classHex
	classSchemeTail
)

const maxHostLen = 255

var classes = func() (t [256]uint8) {
	mark := func(class uint8, chars string) {
		for i := 0; i < len(chars); i++ {
			t[chars[i]] |= class
		}
	}

	const (
		alpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
		digit = "0123456789"
	)
	mark(classUnreserved, alpha+digit+"-._~")
	mark(classGenDelim, ":/?#[]@")
	mark(classSubDelim, "!$&'()*+,;=")
	mark(classHex, digit+"ABCDEFabcdef")
	mark(classSchemeTail, alpha+digit+"+-.")
	return t
}()

func is(c byte, class uint8) bool { return classes[c]&class != 0 }

func isUnreserved(c byte) bool { return is(c, classUnreserved) }
func isSubDelim(c byte) bool   { return is(c, classSubDelim) }
func isReserved(c byte) bool   { return is(c, classGenDelim|classSubDelim) }

// isPercentEncoded reports whether s is exactly one pct-encoded octet.
func isPercentEncoded(s string) bool {
	return len(s) == 3 && s[0] == '%' && is(s[1], classHex) && is(s[2], classHex)
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.1
func assertValidScheme(scheme string) error {
	if scheme == "" {
		return errors.New("scheme is empty")
	}
	if !isLetter(scheme[0]) {
		return errors.Errorf("scheme %q doesn't start with a letter", scheme)
	}
	for i := 1; i < len(scheme); i++ {
		if !is(scheme[i], classSchemeTail) {
			return errors.Errorf("scheme %q contains invalid byte %q", scheme, scheme[i])
		}
	}
	return nil
}

func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }

// assertValidHost accepts an IP literal, an IPv4 address or a reg-name.
// Empty host is a valid empty reg-name.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.2
func assertValidHost(host string) error {
	if len(host) > maxHostLen {
		return errors.Errorf("host length exceeds limit(%d): %d", maxHostLen, len(host))
	}

	if n := len(host); n >= 2 && host[0] == '[' && host[n-1] == ']' {
		literal := host[1 : n-1]
		if addr, err := netip.ParseAddr(literal); err == nil && addr.Is6() && addr.Zone() == "" {
			return nil
		}
		if isIPvFuture(literal) {
			return nil
		}
		return errors.Errorf("malformed ip literal %q", host)
	}

	if !isValidRegName(host) {
		return errors.Errorf("host %q is neither an ipv4 address nor a reg-name", host)
	}
	return nil
}

func isValidRegName(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case is(c, classUnreserved|classSubDelim):
		case c == '%' && i+3 <= len(s) && isPercentEncoded(s[i:i+3]):
			i += 2
		default:
			return false
		}
	}
	return true
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.2
func isIPvFuture(s string) bool {
	// "v" 1*HEXDIG "." 1*( unreserved / sub-delims / ":" )
	if len(s) < 4 || s[0] != 'v' {
		return false
	}

	dot := 1
	for dot < len(s) && is(s[dot], classHex) {
		dot++
	}
	if dot == 1 || dot >= len(s)-1 || s[dot] != '.' {
		return false
	}

	for i := dot + 1; i < len(s); i++ {
		if c := s[i]; !is(c, classUnreserved|classSubDelim) && c != ':' {
			return false
		}
	}
	return true
}
