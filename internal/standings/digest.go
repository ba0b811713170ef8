package standings

import (
	"bytes"
	"strconv"
	"strings"
)

// Canonical serializes a table into the byte form that gets hashed for
// change detection. Only the normalized row fields participate: timestamps,
// source URLs and badge URLs must not force a re-render on their own.
//
// One row per line, fields pipe-joined, whitespace collapsed.
func Canonical(t Table) []byte {
	var buf bytes.Buffer
	buf.WriteString(canonField(t.League))
	buf.WriteByte('\n')
	for _, row := range t.Rows {
		buf.WriteString(strconv.Itoa(row.Position))
		buf.WriteByte('|')
		buf.WriteString(canonField(row.Driver))
		buf.WriteByte('|')
		buf.WriteString(canonField(row.CarNumber))
		buf.WriteByte('|')
		buf.WriteString(canonField(row.Class))
		buf.WriteByte('|')
		buf.WriteString(canonField(row.Points))
		buf.WriteByte('|')
		buf.WriteString(canonField(row.Diff))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func canonField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
