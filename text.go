// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// decodeText converts a PDF text string to UTF-8.
// Strings with a UTF-16 byte order mark are decoded as UTF-16, strings with a
// UTF-8 mark have it stripped, and everything else is read as PDFDocEncoding,
// approximated by Latin-1 for the printable range.
func decodeText(s string) string {
	switch {
	case strings.HasPrefix(s, "\xfe\xff"):
		return decodeUTF16(s, unicode.BigEndian)
	case strings.HasPrefix(s, "\xff\xfe"):
		return decodeUTF16(s, unicode.LittleEndian)
	case strings.HasPrefix(s, "\xef\xbb\xbf"):
		return s[3:]
	case utf8.ValidString(s) && isASCII(s):
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func decodeUTF16(s string, order unicode.Endianness) string {
	out, err := unicode.UTF16(order, unicode.ExpectBOM).NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
