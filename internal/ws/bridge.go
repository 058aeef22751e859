package ws

import (
	"errors"

	"energy_harmonizer/internal/pipeline"
)

// Bridge implements pipeline.Observer and broadcasts run progress to the
// WebSocket hub.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.hub.log.Errorf("marshaling %s: %v", msgType, err)
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnRunStarted(info pipeline.RunInfo) {
	b.broadcast(TypeRunStarted, RunStartedPayload{
		RunID:   info.RunID,
		Started: formatTime(info.Started),
	})
}

func (b *Bridge) OnStageCompleted(ev pipeline.StageEvent) {
	b.broadcast(TypeStageCompleted, StageFromEvent(ev))
}

func (b *Bridge) OnRunCompleted(s pipeline.Summary) {
	b.broadcast(TypeRunCompleted, CompletedFromSummary(s))
}

func (b *Bridge) OnRunFailed(info pipeline.RunInfo, err error) {
	p := RunFailedPayload{RunID: info.RunID, Error: err.Error()}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		p.Stage = string(se.Stage)
	}
	b.broadcast(TypeRunFailed, p)
}
