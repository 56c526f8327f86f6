package pipeline

import (
	"encoding/json"
	"time"
)

// Step names one stage of an ingestion run.
type Step string

const (
	StepFetchAudioFeatures     Step = "FetchAudioFeatures"
	StepFetchLyrics            Step = "FetchLyrics"
	StepGenerateInterpretation Step = "GenerateInterpretation"
	StepEmbedInterpretation    Step = "EmbedInterpretation"
	StepStoreDocument          Step = "StoreDocument"
	StepEmitCompletion         Step = "EmitCompletion"
)

// Steps is the fixed execution order of a run.
var Steps = []Step{
	StepFetchAudioFeatures,
	StepFetchLyrics,
	StepGenerateInterpretation,
	StepEmbedInterpretation,
	StepStoreDocument,
	StepEmitCompletion,
}

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Terminal reports whether no further attempt will be made.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request is an ingestion trigger.
type Request struct {
	ISRC           string
	ForceReprocess bool
}

// Ticket acknowledges a Submit. Coalesced is set when the request joined an existing
// run instead of starting one.
type Ticket struct {
	RunID     string `json:"runId"`
	Coalesced bool   `json:"coalesced"`
	Status    Status `json:"status"`
}

// Run is the execution record of one ingestion of one ISRC.
type Run struct {
	ISRC          string    `json:"isrc" msgpack:"isrc"`
	RunID         string    `json:"runId" msgpack:"run_id"`
	Status        Status    `json:"status" msgpack:"status"`
	Force         bool      `json:"force" msgpack:"force"`
	Attempts      int       `json:"attempts" msgpack:"attempts"`
	ErrorKind     ErrorKind `json:"errorKind,omitempty" msgpack:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty" msgpack:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt" msgpack:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" msgpack:"updated_at"`
	NextAttemptAt time.Time `json:"nextAttemptAt,omitempty" msgpack:"next_attempt_at"`
	CompletedAt   time.Time `json:"completedAt,omitempty" msgpack:"completed_at"`
}

// Terminal reports whether the run has finished.
func (r Run) Terminal() bool { return r.Status.Terminal() }

// StepResult is the memoized output of one step. Value is JSON; "null" records a
// step that legitimately produced nothing.
type StepResult struct {
	ISRC        string          `json:"isrc" msgpack:"isrc"`
	RunID       string          `json:"runId" msgpack:"run_id"`
	Step        Step            `json:"step" msgpack:"step"`
	Value       json.RawMessage `json:"value" msgpack:"value"`
	CompletedAt time.Time       `json:"completedAt" msgpack:"completed_at"`
}
