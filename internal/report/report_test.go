package report

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() *Report {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &Report{
		RunID:      "run-1",
		Profile:    "task-manager",
		AppName:    "Task Manager",
		BaseURL:    "http://localhost:3000",
		StartedAt:  start,
		FinishedAt: start.Add(12 * time.Second),
		Duration:   12 * time.Second,
	}
	r.Add(Result{Position: 1, Name: "TC01: Verify Homepage Title", Status: StatusPassed, Duration: time.Second})
	r.Add(Result{Position: 2, Name: "TC02: Create New Task", Status: StatusFailed, Kind: KindAssertion,
		Message: "expected task title \"Test Task 1\", got \"x\"", Duration: 2 * time.Second, Screenshot: "shots/a.png"})
	r.Add(Result{Position: 3, Name: "TC03: Update Existing Task", Status: StatusPassed,
		Notes: []string{"lenient: no \"Mark Complete\" action found"}, Duration: time.Second})
	r.Add(Result{Position: 4, Name: "TC04: Delete Task", Status: StatusFailed, Kind: KindError, Message: "boom"})
	r.Add(Result{Position: 5, Name: "TC05: Form Validation Test", Status: StatusSkipped})
	return r
}

func TestReportCounts(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, 2, r.Passed)
	assert.Equal(t, 2, r.Failed)
	assert.Equal(t, 1, r.Skipped)
	assert.False(t, r.Succeeded())
	assert.InDelta(t, 50.0, r.SuccessRate(), 0.001)
	assert.Len(t, r.Failures(), 2)

	empty := &Report{}
	assert.True(t, empty.Succeeded())
	assert.Zero(t, empty.SuccessRate())
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "TASK MANAGER UI WORKFLOW REPORT")
	assert.Contains(t, out, "✅ PASSED TC01: Verify Homepage Title")
	assert.Contains(t, out, "❌ FAILED TC02: Create New Task")
	assert.Contains(t, out, "Assertion: expected task title")
	assert.Contains(t, out, "Note: lenient")
	assert.Contains(t, out, "SKIPPED TC05")
	assert.Contains(t, out, "Success Rate: 50.0%")
	assert.Contains(t, out, "2 scenario(s) failed")
}

func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, WriteJSON(path, sampleReport()))
	got, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, sampleReport().Results, got.Results)
	assert.Equal(t, "run-1", got.RunID)
}

func TestJUnit(t *testing.T) {
	data, err := JUnit(sampleReport())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	var doc junitSuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Suites, 1)
	s := doc.Suites[0]
	assert.Equal(t, 5, s.Tests)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, "12.000", s.Time)
	require.Len(t, s.Cases, 5)
	require.NotNil(t, s.Cases[1].Failure)
	assert.Equal(t, "assertion", s.Cases[1].Failure.Type)
	assert.Contains(t, s.Cases[1].Failure.Body, "screenshot: shots/a.png")
	assert.NotNil(t, s.Cases[3].Error)
	assert.NotNil(t, s.Cases[4].Skipped)
	assert.Contains(t, s.Cases[2].SystemOut, "lenient")
}

func TestMarkdownAndHTML(t *testing.T) {
	md := Markdown(sampleReport())
	assert.Contains(t, md, "# Task Manager UI workflow report")
	assert.Contains(t, md, "| 2 | TC02: Create New Task | FAILED |")
	assert.Contains(t, md, "## Failures")
	assert.Contains(t, md, "2 passed, 2 failed, 1 skipped of 5")

	page, err := HTML(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2")
	assert.NotContains(t, page, "<script")
}

func TestHTMLSanitizesScenarioText(t *testing.T) {
	r := sampleReport()
	r.Results[1].Message = "<script>alert(1)</script>"
	page, err := HTML(r)
	require.NoError(t, err)
	assert.NotContains(t, page, "<script>")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.xlsx")
	require.NoError(t, WriteXLSX(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet, summarySheet}, f.GetSheetList())
	rows, err := f.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Scenario", rows[0][1])
	assert.Equal(t, "TC02: Create New Task", rows[2][1])
	assert.Equal(t, "failed", rows[2][2])

	v, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "uiflow.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `uiflow_scenarios{profile="task-manager",status="failed"} 2`)
	assert.Contains(t, out, `uiflow_scenario_passed{profile="task-manager",scenario="TC01: Verify Homepage Title"} 1`)
	assert.Contains(t, out, `uiflow_runs_total{outcome="failure",profile="task-manager"} 1`)
}

func TestWriteAll(t *testing.T) {
	formats, err := ParseFormats([]string{"json", "JUnit", " markdown ", "html", "xlsx", "metrics", "json"})
	require.NoError(t, err)
	assert.Len(t, formats, 6)

	dir := filepath.Join(t.TempDir(), "nested")
	written, err := WriteAll(dir, sampleReport(), formats)
	require.NoError(t, err)
	assert.Len(t, written, 6)
	for _, p := range written {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	_, err = ParseFormats([]string{"pdf"})
	assert.Error(t, err)
}
