package roster

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"Student Name", "Student Email", "Syllabus", "Progress %", "Completed Topics", "Total Topics", "Last Updated"}

// ExportFileName returns the download name of an export made at now.
func ExportFileName(now time.Time) string {
	return "teacher_dashboard_progress_" + now.Format(time.DateOnly) + ".csv"
}

// WriteCSV writes entries with CSVHeader. Progress is rounded to a whole percent; a missing
// syllabus is "N/A" and a missing update time is "Never".
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "[WriteCSV] header")
	}
	for _, e := range entries {
		syllabus := e.SyllabusName
		if syllabus == "" {
			syllabus = "N/A"
		}
		updated := e.LastUpdated
		if updated == "" {
			updated = "Never"
		}
		row := []string{
			e.Name,
			e.Email,
			syllabus,
			strconv.Itoa(int(math.Round(e.ProgressPercentage))),
			strconv.Itoa(e.CompletedCount),
			strconv.Itoa(e.TotalTopics),
			updated,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "[WriteCSV] row for %s", e.Email)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "[WriteCSV] flush")
}
