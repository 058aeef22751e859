package pipeline

import "time"

type Stage string

const (
	StageNormalizeConsumption Stage = "normalize_consumption"
	StageValidate             Stage = "validate"
	StageReshape              Stage = "reshape"
	StageNormalizeWeather     Stage = "normalize_weather"
	StageCombineWeather       Stage = "combine_weather"
	StageNormalizePrices      Stage = "normalize_prices"
	StageMerge                Stage = "merge"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageNormalizeConsumption,
	StageValidate,
	StageReshape,
	StageNormalizeWeather,
	StageCombineWeather,
	StageNormalizePrices,
	StageMerge,
}

// RunInfo identifies a run when it starts or fails.
type RunInfo struct {
	RunID   string
	Started time.Time
}

// StageEvent is emitted after a stage finished successfully.
type StageEvent struct {
	RunID    string
	Stage    Stage
	RowsIn   int
	RowsOut  int
	Duration time.Duration
}

// Summary is emitted when a run completed.
type Summary struct {
	RunID        string
	Rows         int
	Columns      []string
	RowsDropped  int
	CellsMasked  int
	CellsImputed int
	Unresolved   int
	Duration     time.Duration
}

// Observer receives pipeline events. Calls happen on the goroutine running
// the pipeline.
type Observer interface {
	OnRunStarted(info RunInfo)
	OnStageCompleted(ev StageEvent)
	OnRunCompleted(s Summary)
	OnRunFailed(info RunInfo, err error)
}

type multiObserver []Observer

// Observers fans events out to every non-nil observer, in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) OnRunStarted(info RunInfo) {
	for _, o := range m {
		o.OnRunStarted(info)
	}
}

func (m multiObserver) OnStageCompleted(ev StageEvent) {
	for _, o := range m {
		o.OnStageCompleted(ev)
	}
}

func (m multiObserver) OnRunCompleted(s Summary) {
	for _, o := range m {
		o.OnRunCompleted(s)
	}
}

func (m multiObserver) OnRunFailed(info RunInfo, err error) {
	for _, o := range m {
		o.OnRunFailed(info, err)
	}
}
