package license

import (
	"strconv"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Canonicalize serializes the signed fields of a token in the exact form the
// issuer hashed: a compact JSON object with keys in lexicographic order.
//
//	{"created_at":1000,"email":"a@b.com","license_type":"pro"}
//
// Any deviation breaks every token with a hash mismatch, so the string
// escaping follows the issuer's serializer rather than encoding/json, which
// also escapes <, >, & and U+2028/U+2029.
func Canonicalize(email string, createdAt uint64, licenseType string) []byte {
	buf := make([]byte, 0, 48+len(email)+len(licenseType))
	buf = append(buf, `{"created_at":`...)
	buf = strconv.AppendUint(buf, createdAt, 10)
	buf = append(buf, `,"email":`...)
	buf = appendJSONString(buf, email)
	buf = append(buf, `,"license_type":`...)
	buf = appendJSONString(buf, licenseType)
	buf = append(buf, '}')
	return buf
}

// CanonicalPayload is Canonicalize applied to a decoded token
func CanonicalPayload(tok Token) []byte {
	return Canonicalize(tok.Email, tok.CreatedAt, tok.LicenseType)
}

func appendJSONString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			buf = utf8.AppendRune(buf, r)
			i += size
			continue
		}
		switch c {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				buf = append(buf, c)
			}
		}
		i++
	}
	return append(buf, '"')
}
