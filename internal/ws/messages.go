package ws

import (
	"encoding/json"
	"time"

	"energy_harmonizer/internal/model"
	"energy_harmonizer/internal/pipeline"
	"energy_harmonizer/internal/store"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type RowsRequestPayload struct {
	RunID string `json:"run_id"`
	Start string `json:"start"`
	End   string `json:"end"`
	At    string `json:"at,omitempty"`
}

// Server -> Client messages

type RunStartedPayload struct {
	RunID   string `json:"run_id"`
	Started string `json:"started"`
}

type StageCompletedPayload struct {
	RunID      string  `json:"run_id"`
	Stage      string  `json:"stage"`
	RowsIn     int     `json:"rows_in"`
	RowsOut    int     `json:"rows_out"`
	DurationMs float64 `json:"duration_ms"`
}

type RunCompletedPayload struct {
	RunID        string   `json:"run_id"`
	Rows         int      `json:"rows"`
	Columns      []string `json:"columns"`
	RowsDropped  int      `json:"rows_dropped"`
	CellsMasked  int      `json:"cells_masked"`
	CellsImputed int      `json:"cells_imputed"`
	Unresolved   int      `json:"unresolved"`
	DurationMs   float64  `json:"duration_ms"`
}

type RunFailedPayload struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type RunInfo struct {
	ID        string        `json:"id"`
	Columns   []string      `json:"columns"`
	Rows      int           `json:"rows"`
	TimeRange TimeRangeInfo `json:"time_range"`
	Stored    string        `json:"stored"`
}

type RunsLoadedPayload struct {
	Runs      []RunInfo     `json:"runs"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

type RowsPayload struct {
	RunID   string   `json:"run_id"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	// Total is the number of rows stored for the run.
	Total int `json:"total"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Message type constants
const (
	// Client -> Server
	TypeRunStart  = "run:start"
	TypeRunsList  = "runs:list"
	TypeRowsQuery = "rows:query"

	// Server -> Client
	TypeRunStarted     = "run:started"
	TypeStageCompleted = "stage:completed"
	TypeRunCompleted   = "run:completed"
	TypeRunFailed      = "run:failed"
	TypeRunsLoaded     = "runs:loaded"
	TypeRows           = "rows"
	TypeError          = "error"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func timeRangeInfo(tr model.TimeRange) TimeRangeInfo {
	return TimeRangeInfo{Start: formatTime(tr.Start), End: formatTime(tr.End)}
}

func StageFromEvent(ev pipeline.StageEvent) StageCompletedPayload {
	return StageCompletedPayload{
		RunID:      ev.RunID,
		Stage:      string(ev.Stage),
		RowsIn:     ev.RowsIn,
		RowsOut:    ev.RowsOut,
		DurationMs: float64(ev.Duration) / float64(time.Millisecond),
	}
}

func CompletedFromSummary(s pipeline.Summary) RunCompletedPayload {
	return RunCompletedPayload{
		RunID:        s.RunID,
		Rows:         s.Rows,
		Columns:      s.Columns,
		RowsDropped:  s.RowsDropped,
		CellsMasked:  s.CellsMasked,
		CellsImputed: s.CellsImputed,
		Unresolved:   s.Unresolved,
		DurationMs:   float64(s.Duration) / float64(time.Millisecond),
	}
}

func RunsFromStore(st *store.Store) RunsLoadedPayload {
	metas := st.Runs()
	runs := make([]RunInfo, 0, len(metas))
	for _, m := range metas {
		runs = append(runs, RunInfo{
			ID:        m.ID,
			Columns:   m.Columns,
			Rows:      m.Rows,
			TimeRange: timeRangeInfo(m.TimeRange),
			Stored:    formatTime(m.Stored),
		})
	}
	tr, _ := st.GlobalTimeRange()
	return RunsLoadedPayload{Runs: runs, TimeRange: timeRangeInfo(tr)}
}

// RowsFromRecords flattens records into JSON rows led by the DateTime.
// Missing cells become null.
func RowsFromRecords(runID string, columns []string, records []model.Record) RowsPayload {
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(columns))
		row[0] = r.DateTime.Format(model.DateTimeLayout)
		for j := 1; j < len(columns) && j-1 < len(r.Values); j++ {
			row[j] = r.Values[j-1].Interface()
		}
		rows[i] = row
	}
	return RowsPayload{RunID: runID, Columns: columns, Rows: rows}
}
