package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"
	"gopkg.in/yaml.v3"
)

// Format selects how commands render resources.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s (want table, json or yaml)", s)
	}
}

// writeStructured renders v as JSON or YAML. Field names and value encodings
// follow the JSON form in both cases.
func writeStructured(w io.Writer, f Format, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if f != FormatYAML {
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	}

	// JSON is YAML; decoding into a node keeps field order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from the JSON
// source. The encoder re-quotes strings that would otherwise change type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// table renders rows in aligned columns, measuring display width so that
// wide and combining characters line up.
type table struct {
	header []string
	rows   [][]string
	// widths caps individual columns; zero means unlimited.
	widths map[int]int
}

func newTable(header ...string) *table {
	return &table{header: header, widths: make(map[int]int)}
}

func (t *table) limit(col, width int) *table {
	t.widths[col] = width
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) error {
	all := append([][]string{t.header}, t.rows...)
	for _, row := range all {
		for i := range row {
			if limit := t.widths[i]; limit > 0 {
				row[i] = truncate(row[i], limit, "…")
			}
		}
	}

	var cols []int
	for _, row := range all {
		for i, cell := range row {
			if i >= len(cols) {
				cols = append(cols, 0)
			}
			cols[i] = max(cols[i], uniseg.StringWidth(cell))
		}
	}

	var buf bytes.Buffer
	for _, row := range all {
		for i, cell := range row {
			buf.WriteString(cell)
			if i < len(row)-1 {
				buf.WriteString(strings.Repeat(" ", cols[i]-uniseg.StringWidth(cell)+2))
			}
		}
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// truncate shortens s to at most maxWidth display cells, cutting between
// grapheme clusters and appending tail when anything was removed. A tail
// wider than maxWidth is returned alone.
func truncate(s string, maxWidth int, tail string) string {
	if uniseg.StringWidth(s) <= maxWidth {
		return s
	}
	tailWidth := uniseg.StringWidth(tail)
	if tailWidth > maxWidth {
		return tail
	}
	target := maxWidth - tailWidth

	var (
		sb      strings.Builder
		current int
		cluster string
		width   int
		state   = -1
	)
	for remaining := s; len(remaining) > 0; {
		cluster, remaining, width, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		if current+width > target {
			break
		}
		current += width
		sb.WriteString(cluster)
	}
	sb.WriteString(tail)
	return sb.String()
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// render writes v in the app's output format. tbl builds the table form.
func render(app *App, w io.Writer, v any, tbl func() *table) error {
	f, err := app.Format()
	if err != nil {
		return err
	}
	if f == FormatTable {
		return tbl().write(w)
	}
	return writeStructured(w, f, v)
}
