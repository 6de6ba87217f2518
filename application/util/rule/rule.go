package rule

func IsWhitespace(r rune) bool {
	for _, ws := range Whitespaces {
		if r == rune(ws) {
			return true
		}
	}
	return false
}

func IsAlpha(r rune) bool { return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') }
func IsDigit(r rune) bool { return '0' <= r && r <= '9' }

func IsHex(r rune) bool {
	return IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// IsCTL reports US-ASCII control characters, DEL included.
func IsCTL(c byte) bool { return c < ' ' || c == 0x7f }

func ContainsCTL(s string) bool {
	for i := 0; i < len(s); i++ {
		if IsCTL(s[i]) {
			return true
		}
	}
	return false
}
