package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders r as a summary suitable for mail bodies and CI comments
func Markdown(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s UI workflow report\n\n", r.AppName)
	fmt.Fprintf(&b, "- **Target:** %s (`%s`)\n", r.BaseURL, r.Profile)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Result:** %d passed, %d failed, %d skipped of %d (%.1f%%)\n\n",
		r.Passed, r.Failed, r.Skipped, r.Total, r.SuccessRate())

	b.WriteString("| # | Scenario | Status | Time | Message |\n")
	b.WriteString("|---|----------|--------|------|---------|\n")
	for _, res := range r.Results {
		msg := res.Message
		if msg == "" && len(res.Notes) > 0 {
			msg = strings.Join(res.Notes, "; ")
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			res.Position, cell(res.Name), strings.ToUpper(string(res.Status)),
			res.Duration.Round(time.Millisecond), cell(msg))
	}

	if failures := r.Failures(); len(failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "### %s\n\n", f.Name)
			fmt.Fprintf(&b, "%s (%s)\n\n", f.Message, f.Kind)
			if f.Screenshot != "" {
				fmt.Fprintf(&b, "Screenshot: `%s`\n\n", f.Screenshot)
			}
		}
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// HTML renders the markdown summary to sanitized HTML
func HTML(r *Report) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &buf); err != nil {
		return "", err
	}
	body := bluemonday.UGCPolicy().Sanitize(buf.String())
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>" +
		bluemonday.StrictPolicy().Sanitize(r.AppName) + " UI workflow report</title></head><body>\n" +
		body + "</body></html>\n", nil
}

// WriteMarkdown saves the markdown summary
func WriteMarkdown(path string, r *Report) error {
	return os.WriteFile(path, []byte(Markdown(r)), 0644)
}

// WriteHTML saves the HTML summary
func WriteHTML(path string, r *Report) error {
	page, err := HTML(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(page), 0644)
}
