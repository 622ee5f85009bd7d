package csvparse

import "strings"

// QuoteField returns s quoted if it contains a comma, quote, CR or LF.
// Embedded quotes are doubled.
func QuoteField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Format joins rows back into text that Parse reads as the same rows.
// Rows are separated by "\n" and the output ends with a trailing newline.
func Format(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			// A row made of one empty field would read back as a blank line.
			if len(row) == 1 && field == "" {
				b.WriteString(`""`)
				continue
			}
			b.WriteString(QuoteField(field))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
