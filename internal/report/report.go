// Package report renders completed-task spreadsheets.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/internal/station"
	"github.com/kazz187/labtrack/internal/task"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/date"
	"github.com/kazz187/labtrack/pkg/rest"
)

const (
	SheetTasks    = "Tasks"
	SheetSummary  = "Summary"
	SheetStations = "Stations"

	defaultRangeDays = 30
	contentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type TaskLister interface {
	List(ctx context.Context, q task.Query) ([]*task.Task, int, error)
}

type Options struct {
	From            date.Date
	To              date.Date
	IncludeStations bool
}

type Generator struct {
	tasks    TaskLister
	staff    staff.Repository
	stations station.Repository
	clock    checklist.Clock
}

func NewGenerator(tasks TaskLister, staffRepo staff.Repository, stations station.Repository, clock checklist.Clock) *Generator {
	return &Generator{tasks: tasks, staff: staffRepo, stations: stations, clock: clock}
}

func (g *Generator) Routes(r chi.Router) {
	r.Get("/reports/tasks.xlsx", g.serve)
}

// Build renders every task completed within [opts.From, opts.To].
func (g *Generator) Build(ctx context.Context, opts Options) (*excelize.File, error) {
	tasks, _, err := g.tasks.List(ctx, task.Query{
		Status:        checklist.StatusCompleted,
		CompletedFrom: opts.From,
		CompletedTo:   opts.To,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CompletedOn.Before(tasks[j].CompletedOn)
	})
	members, err := g.staff.List(ctx, "", false)
	if err != nil {
		return nil, err
	}
	stations, err := g.stations.List(ctx, "", "")
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	stationNames := make(map[string]string, len(stations))
	for _, st := range stations {
		stationNames[st.ID] = st.Name
	}

	f := excelize.NewFile()
	w := &sheetWriter{f: f}
	if err := f.SetSheetName("Sheet1", SheetTasks); err != nil {
		return nil, err
	}
	if w.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	}); err != nil {
		return nil, err
	}

	w.row(SheetTasks, 1, "Title", "Patient", "MRN", "Room", "Order Type", "Priority", "Status", "Progress", "Completed On", "Assignee", "Station")
	for i, t := range tasks {
		w.row(SheetTasks, i+2,
			t.Title, t.PatientName, t.MRN, t.Room, t.OrderType, string(t.Priority), string(t.Status),
			t.Progress, t.CompletedOn.String(), names[t.AssigneeID], stationNames[t.StationID])
	}
	w.layout(SheetTasks, 1, []float64{32, 24, 12, 10, 26, 10, 14, 10, 14, 22, 16})

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, err
	}
	w.row(SheetSummary, 1, "Report", fmt.Sprintf("Completed tasks %s to %s", orOpen(opts.From), orOpen(opts.To)))
	w.row(SheetSummary, 2, "Generated", g.clock.Now().Format("2006-01-02 15:04"))
	w.row(SheetSummary, 3, "Total", len(tasks))

	row := 5
	w.row(SheetSummary, row, "Status", "Count")
	byStatus := make(map[checklist.Status]int)
	for _, t := range tasks {
		byStatus[t.Status]++
	}
	for _, st := range checklist.Statuses() {
		row++
		w.row(SheetSummary, row, string(st), byStatus[st])
	}

	row += 2
	w.row(SheetSummary, row, "Order Type", "Count")
	byOrderType := make(map[string]int)
	for _, t := range tasks {
		byOrderType[t.OrderType]++
	}
	orderTypes := make([]string, 0, len(byOrderType))
	for ot := range byOrderType {
		orderTypes = append(orderTypes, ot)
	}
	sort.Strings(orderTypes)
	for _, ot := range orderTypes {
		row++
		w.row(SheetSummary, row, ot, byOrderType[ot])
	}
	w.layout(SheetSummary, 0, []float64{22, 40})

	if opts.IncludeStations {
		if _, err := f.NewSheet(SheetStations); err != nil {
			return nil, err
		}
		w.row(SheetStations, 1, "Name", "Type", "Location", "Asset Tag", "Status", "Notes")
		for i, st := range stations {
			w.row(SheetStations, i+2, st.Name, string(st.Type), st.Location, st.AssetTag, string(st.Status), st.Notes)
		}
		w.layout(SheetStations, 1, []float64{20, 14, 20, 14, 14, 40})
	}

	if w.err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to render report: %w", w.err))
	}
	return f, nil
}

func (g *Generator) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts, err := g.options(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	f, err := g.Build(ctx, opts)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tasks_%s_%s.xlsx"`, opts.From, opts.To))
	cerr.SetRawResponse(ctx)
	// the body may be partly written, so an error response is no longer possible
	if err := f.Write(w); err != nil {
		slog.ErrorContext(ctx, "failed to write report", "from", opts.From.String(), "to", opts.To.String(), "error", err)
	}
}

// options reads from/to, defaulting to the last 30 days ending today.
func (g *Generator) options(r *http.Request) (Options, error) {
	from, err := rest.QueryDate(r, "from")
	if err != nil {
		return Options{}, err
	}
	to, err := rest.QueryDate(r, "to")
	if err != nil {
		return Options{}, err
	}
	if to.IsZero() {
		to = checklist.Today(g.clock)
	}
	if from.IsZero() {
		from = to.AddDays(-defaultRangeDays)
	}
	if to.Before(from) {
		return Options{}, cerr.NewInvalidArgumentError("invalid date range", map[string]string{"to": "must not be before from"})
	}
	return Options{From: from, To: to, IncludeStations: r.URL.Query().Get("stations") == "true"}, nil
}

// sheetWriter keeps the first error so rows can be written without checks.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, row int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

// layout sets column widths and styles headerRow (0 for none).
func (w *sheetWriter) layout(sheet string, headerRow int, widths []float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(sheet, col, col, width)
	}
	if w.err != nil || headerRow == 0 {
		return
	}
	if w.err = w.f.SetRowStyle(sheet, headerRow, headerRow, w.header); w.err != nil {
		return
	}
	w.err = w.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	})
}

func orOpen(d date.Date) string {
	if d.IsZero() {
		return "(open)"
	}
	return d.String()
}
