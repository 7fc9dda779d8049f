package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/syllabus-tracker/dashboard"
	"github.com/jrsteele09/syllabus-tracker/internal/utils"
	"github.com/jrsteele09/syllabus-tracker/roster"
	"github.com/jrsteele09/syllabus-tracker/tracker"
	"github.com/jrsteele09/syllabus-tracker/trackerapi"
)

const listLimit = 5

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func renderStudent(w io.Writer, v tracker.View) {
	if v.Session != nil {
		fmt.Fprintf(w, "%s <%s>, signed in until %s\n", v.Session.User.Name, v.Session.User.Email, v.Session.ExpiresAt.Local().Format(time.Kitchen))
	}
	for _, err := range []error{v.CatalogErr, v.ProgressErr} {
		if err != nil {
			fmt.Fprintf(w, "! %s\n", err)
		}
	}

	if len(v.Syllabuses) > 0 {
		tw := newTable(w)
		for _, s := range v.Syllabuses {
			mark := " "
			if s.ID == v.Selected {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", mark, s.ID, s.Name)
		}
		tw.Flush()
	}
	if v.Selected == trackerapi.ContactSyllabusID {
		fmt.Fprintln(w, "No syllabus has been assigned to you yet. Please contact your teacher.")
		return
	}
	if v.Content == nil {
		return
	}

	fmt.Fprintf(w, "\n%s\n", v.Content.Name)
	if desc := utils.Value(v.Content.Description); desc != "" {
		fmt.Fprintln(w, desc)
	}
	overall := v.Progress.Overall
	fmt.Fprintf(w, "Progress: %d/%d topics (%.0f%%)\n", overall.Completed, overall.Total, overall.Percentage)
	for _, variant := range v.Content.Variants {
		fmt.Fprintf(w, "\n%s\n", variant.Name)
		tw := newTable(w)
		for _, t := range variant.Topics {
			box := "[ ]"
			if v.Progress.Completed(t.ID) {
				box = "[x]"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", box, t.ID, t.ChapterName, t.TopicName)
		}
		tw.Flush()
	}
}

func renderDashboard(w io.Writer, dash *dashboard.Store, lastRefresh time.Time) {
	if status := dash.Status(); status.Message != "" {
		fmt.Fprintf(w, "[%s] %s\n", status.Level, status.Message)
	}
	last := "never"
	if !lastRefresh.IsZero() {
		last = lastRefresh.Local().Format(time.DateTime)
	}
	f := dash.Filter()
	fmt.Fprintf(w, "Last refresh: %s  search=%q progress=%s syllabus=%s\n\n", last, f.Search, orAll(f.Bucket), orAll(f.SyllabusID))

	displayed := dash.Displayed()
	stats := dash.Stats()
	fmt.Fprintf(w, "Students: %d  Average progress: %.1f%%  Syllabuses assigned: %d  Completion rate: %.1f%%\n",
		stats.TotalStudents, stats.AverageProgress, stats.SyllabusesAssigned, stats.CompletionRate)

	switch dash.Tab() {
	case dashboard.TabStudents:
		fmt.Fprintln(w, "\nStudents")
		tw := newTable(w)
		fmt.Fprintln(tw, "NAME\tEMAIL\tSYLLABUSES\tPROGRESS")
		for _, s := range roster.GroupByStudent(displayed) {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.0f%%\n", s.Name, s.Email, len(s.Syllabuses), s.TotalProgress)
		}
		tw.Flush()

	case dashboard.TabAnalytics:
		d := roster.Distribute(displayed)
		fmt.Fprintln(w, "\nProgress distribution")
		tw := newTable(w)
		fmt.Fprintf(tw, "0-25%%\t%d\n25-50%%\t%d\n50-75%%\t%d\n75-100%%\t%d\n", d.UpTo25, d.UpTo50, d.UpTo75, d.UpTo100)
		tw.Flush()
		fmt.Fprintf(w, "\nTop performers (over %d%%)\n", roster.TopPerformersAbove)
		renderEntries(w, roster.TopPerformers(displayed, listLimit))
		fmt.Fprintf(w, "\nNeed attention (below %d%%)\n", roster.NeedAttentionBelow)
		renderEntries(w, roster.NeedAttention(displayed, listLimit))

	case dashboard.TabBackups:

	default:
		fmt.Fprintln(w)
		renderEntries(w, displayed)
	}
}

func renderEntries(w io.Writer, entries []roster.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tEMAIL\tSYLLABUS\tPROGRESS\tTOPICS\tLAST UPDATED")
	for _, e := range entries {
		updated := e.LastUpdated
		if updated == "" {
			updated = "Never"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\t%d/%d\t%s\n", e.Name, e.Email, e.SyllabusName, e.ProgressPercentage, e.CompletedCount, e.TotalTopics, updated)
	}
	tw.Flush()
}

func renderBackups(w io.Writer, backups []trackerapi.Backup) {
	if len(backups) == 0 {
		fmt.Fprintln(w, "No backups.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tCREATED\tSIZE")
	for _, b := range backups {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", b.Name, b.Created, b.Size)
	}
	tw.Flush()
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}
