package model

import "time"

// Phase names the handoff a token proves.
type Phase string

// Handoff phases.
const (
	PhaseSend   Phase = "SEND"
	PhaseReturn Phase = "RETURN"
)

// HandoffToken is the registry record behind a scannable handoff code.
type HandoffToken struct {
	JTI        string     `json:"jti"`
	Entity     string     `json:"entity"`
	EntityID   string     `json:"entity_id"`
	Phase      Phase      `json:"phase"`
	CreatedAt  time.Time  `json:"created_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}
