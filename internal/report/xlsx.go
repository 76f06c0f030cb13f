package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// WriteXLSX saves r as a workbook with a results sheet and a summary sheet
func WriteXLSX(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	header := []interface{}{"Position", "Scenario", "Status", "Kind", "Duration (s)", "Message", "Notes", "Screenshot"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return err
	}
	for i, res := range r.Results {
		row := []interface{}{
			res.Position,
			res.Name,
			string(res.Status),
			string(res.Kind),
			res.Duration.Seconds(),
			res.Message,
			strings.Join(res.Notes, "\n"),
			res.Screenshot,
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cellName, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"Run", r.RunID},
		{"Application", r.AppName},
		{"Profile", r.Profile},
		{"Base URL", r.BaseURL},
		{"Started", r.StartedAt.Format("2006-01-02 15:04:05")},
		{"Total", r.Total},
		{"Passed", r.Passed},
		{"Failed", r.Failed},
		{"Skipped", r.Skipped},
		{"Success Rate (%)", r.SuccessRate()},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
