// Package csvcodec encodes and decodes single CSV fields and lines.
//
// The format is RFC 4180 style: fields containing a double quote, a comma or
// a line break are wrapped in double quotes and internal quotes are doubled.
// Decoding is lenient: an unterminated quote is closed at end of input and
// never reported as an error.
//
// Unlike encoding/csv, Decode works on one logical record at a time and trims
// unquoted whitespace around every field, which is what hand-edited import
// files need. SplitRecords breaks a file into such records without splitting
// inside a quoted field.
package csvcodec

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const quote = '"'

// Encode returns field as a CSV-safe token.
// Decode(Encode(s)) yields exactly []string{s} for every s.
func Encode(field string) string {
	if !needsQuoting(field) {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// needsQuoting reports whether field must be quoted to survive Decode.
// Surrounding whitespace is included because Decode trims unquoted space.
func needsQuoting(field string) bool {
	if strings.ContainsAny(field, "\",\n\r") {
		return true
	}
	return field != strings.TrimSpace(field)
}

// EncodeRow encodes each field and joins them with commas.
func EncodeRow(fields []string) string {
	encoded := make([]string, len(fields))
	for i, f := range fields {
		encoded[i] = Encode(f)
	}
	return strings.Join(encoded, ",")
}

// Decode splits one CSV record into its fields.
//
// A quote toggles the in-quotes state, except that a doubled quote inside
// quotes is one literal quote. A comma separates fields only outside quotes.
// Whitespace around a field is trimmed unless it was inside quotes. Empty
// leading and trailing fields are kept, so "a," decodes to ["a", ""].
// Bytes other than quotes and commas are copied as is, so invalid UTF-8
// survives a round trip.
func Decode(line string) []string {
	var (
		fields   []string
		field    fieldBuilder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == quote:
			if inQuotes && i+1 < len(line) && line[i+1] == quote {
				field.add(quote, true)
				i++
				continue
			}
			inQuotes = !inQuotes
			if inQuotes {
				field.openQuote()
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, field.finish())
			field = fieldBuilder{}
		default:
			field.add(ch, inQuotes)
		}
	}

	// End of input closes an unterminated quote implicitly.
	return append(fields, field.finish())
}

// fieldBuilder accumulates one field and remembers which part of it was
// quoted, so that trimming never eats quoted whitespace.
type fieldBuilder struct {
	buf []byte
	// lo and hi bound the quoted region when quoted is set.
	lo, hi int
	quoted bool
}

func (b *fieldBuilder) openQuote() {
	if !b.quoted {
		b.quoted = true
		b.lo = len(b.buf)
	}
	b.hi = len(b.buf)
}

func (b *fieldBuilder) add(c byte, inQuotes bool) {
	b.buf = append(b.buf, c)
	if inQuotes {
		if !b.quoted {
			b.quoted = true
			b.lo = len(b.buf) - 1
		}
		b.hi = len(b.buf)
	}
}

func (b *fieldBuilder) finish() string {
	start, end := 0, len(b.buf)
	leftLimit, rightLimit := end, 0
	if b.quoted {
		leftLimit, rightLimit = b.lo, b.hi
	}
	for start < leftLimit {
		r, size := utf8.DecodeRune(b.buf[start:])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > rightLimit && end > start {
		r, size := utf8.DecodeLastRune(b.buf[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return string(b.buf[start:end])
}

// SplitRecords splits CSV text into logical records. Line breaks (LF or
// CRLF) end a record only outside quotes. A quote that is never closed
// later in the text does not join lines: its line becomes a record of its
// own and the lines after it are split normally. Records that are empty or
// whitespace-only are dropped.
func SplitRecords(text string) []string {
	lines := strings.Split(text, "\n")

	// oddAfter[i] counts the lines after i with an odd number of quotes,
	// that is the lines that could close a quote opened on line i.
	oddAfter := make([]int, len(lines))
	for i := len(lines) - 2; i >= 0; i-- {
		oddAfter[i] = oddAfter[i+1]
		if oddQuotes(lines[i+1]) {
			oddAfter[i]++
		}
	}

	var records []string
	add := func(rec string) {
		rec = strings.TrimSuffix(rec, "\r")
		if strings.TrimSpace(rec) != "" {
			records = append(records, rec)
		}
	}

	for i := 0; i < len(lines); i++ {
		if !oddQuotes(lines[i]) || oddAfter[i] == 0 {
			add(lines[i])
			continue
		}
		j := i + 1
		for !oddQuotes(lines[j]) {
			j++
		}
		add(strings.Join(lines[i:j+1], "\n"))
		i = j
	}
	return records
}

// oddQuotes reports whether line leaves a quote open. A doubled quote
// counts twice, which leaves the state unchanged.
func oddQuotes(line string) bool {
	return strings.Count(line, `"`)%2 == 1
}
