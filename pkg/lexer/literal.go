package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// IntSuffix records the u/l/ll suffix of an integer literal.
type IntSuffix int

const (
	SuffixNone IntSuffix = 0
	SuffixU    IntSuffix = 1
	SuffixL    IntSuffix = 2
	SuffixUL   IntSuffix = 3
	SuffixLL   IntSuffix = 4
	SuffixULL  IntSuffix = 5
)

// Unsigned reports whether the suffix carries a 'u'.
func (s IntSuffix) Unsigned() bool {
	return s&SuffixU != 0
}

// ParseInt decodes a C integer literal (decimal, octal, hex or binary)
// with an optional suffix.
func ParseInt(lit string) (uint64, IntSuffix, error) {
	end := len(lit)
	suffix := SuffixNone
	for end > 0 {
		c := lit[end-1]
		if c == 'u' || c == 'U' {
			suffix |= SuffixU
		} else if c == 'l' || c == 'L' {
			if suffix&(SuffixL|SuffixLL) != 0 {
				suffix = suffix&SuffixU | SuffixLL
			} else {
				suffix |= SuffixL
			}
		} else {
			break
		}
		end--
	}
	digits := lit[:end]
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b") || strings.HasPrefix(digits, "0B"):
		base, digits = 2, digits[2:]
	case len(digits) > 1 && digits[0] == '0':
		base, digits = 8, digits[1:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, suffix, fmt.Errorf("invalid integer literal %q", lit)
	}
	return v, suffix, nil
}

// CharValue decodes the body of a character literal (without quotes).
// Multi-character constants pack bytes big-endian like GCC does.
func CharValue(body string) (int64, error) {
	bytes, err := unescape(body)
	if err != nil {
		return 0, err
	}
	if len(bytes) == 0 {
		return 0, fmt.Errorf("empty character constant")
	}
	if len(bytes) == 1 {
		return int64(int8(bytes[0])), nil
	}
	var v int64
	for _, b := range bytes {
		v = v<<8 | int64(b)
	}
	return v, nil
}

// Unquote decodes the body of a string literal (without quotes).
func Unquote(body string) (string, error) {
	b, err := unescape(body)
	return string(b), err
}

func unescape(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			return nil, fmt.Errorf("dangling escape")
		}
		switch e := s[i]; e {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'a':
			out = append(out, 7)
		case 'b':
			out = append(out, 8)
		case 'f':
			out = append(out, 12)
		case 'v':
			out = append(out, 11)
		case 'e':
			out = append(out, 27)
		case 'x':
			j := i + 1
			for j < len(s) && isHex(s[j]) {
				j++
			}
			v, err := strconv.ParseUint(s[i+1:j], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex escape")
			}
			out = append(out, byte(v))
			i = j - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			out = append(out, byte(v))
			i = j - 1
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
