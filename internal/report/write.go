package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format names an output artifact
type Format string

const (
	FormatJSON     Format = "json"
	FormatJUnit    Format = "junit"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatXLSX     Format = "xlsx"
	FormatMetrics  Format = "metrics"
)

// FileNames maps each format to its file inside the report directory
var FileNames = map[Format]string{
	FormatJSON:     "uiflow-report.json",
	FormatJUnit:    "junit.xml",
	FormatMarkdown: "summary.md",
	FormatHTML:     "summary.html",
	FormatXLSX:     "uiflow-report.xlsx",
	FormatMetrics:  "uiflow.prom",
}

// ParseFormats validates format names
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		if f == "" {
			continue
		}
		if _, ok := FileNames[f]; !ok {
			return nil, fmt.Errorf("unknown report format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// WriteAll writes every requested format into dir and returns the paths written
func WriteAll(dir string, r *Report, formats []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	var written []string
	for _, f := range formats {
		path := filepath.Join(dir, FileNames[f])
		var err error
		switch f {
		case FormatJSON:
			err = WriteJSON(path, r)
		case FormatJUnit:
			err = WriteJUnit(path, r)
		case FormatMarkdown:
			err = WriteMarkdown(path, r)
		case FormatHTML:
			err = WriteHTML(path, r)
		case FormatXLSX:
			err = WriteXLSX(path, r)
		case FormatMetrics:
			m := NewMetrics()
			m.Observe(r)
			err = m.WriteTextfile(path)
		default:
			err = fmt.Errorf("unknown report format %q", f)
		}
		if err != nil {
			return written, fmt.Errorf("write %s report: %w", f, err)
		}
		written = append(written, path)
	}
	return written, nil
}
