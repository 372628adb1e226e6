package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Nao-Mk2/sfn-executions-today/internal/aggregator"
	"github.com/Nao-Mk2/sfn-executions-today/internal/model"
)

const (
	NoExecutionsMessage    = "No executions found for the current day"
	NoExecutionsAnyMessage = "No executions found for any state machine for the current day"
)

// Envelope is the value returned to the invoker.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// SingleBody is the body for a single state machine.
type SingleBody struct {
	Date           string                  `json:"date"`
	ExecutionCount int                     `json:"execution_count,omitempty"`
	Message        string                  `json:"message,omitempty"`
	Executions     []model.ExecutionRecord `json:"executions"`
}

// MachineBody holds one state machine's executions in the multi body.
type MachineBody struct {
	ExecutionCount int                     `json:"execution_count"`
	Executions     []model.ExecutionRecord `json:"executions"`
}

// MultiBody is the body for several state machines, keyed by ARN.
type MultiBody struct {
	Date                string                 `json:"date"`
	TotalExecutionCount int                    `json:"total_execution_count,omitempty"`
	Message             string                 `json:"message,omitempty"`
	ExecutionsByMachine map[string]MachineBody `json:"executions_by_machine"`
}

// NewSingleBody flattens res into the single machine shape.
func NewSingleBody(res aggregator.Result) SingleBody {
	executions := []model.ExecutionRecord{}
	for _, m := range res.Order {
		executions = append(executions, res.Groups[m]...)
	}
	if len(executions) == 0 {
		return SingleBody{Date: res.Date, Message: NoExecutionsMessage, Executions: executions}
	}
	return SingleBody{Date: res.Date, ExecutionCount: len(executions), Executions: executions}
}

// NewMultiBody builds the per machine shape.
func NewMultiBody(res aggregator.Result) MultiBody {
	byMachine := make(map[string]MachineBody, len(res.Groups))
	for m, records := range res.Groups {
		byMachine[m] = MachineBody{ExecutionCount: res.Counts[m], Executions: records}
	}
	total := res.Total()
	if total == 0 {
		return MultiBody{Date: res.Date, Message: NoExecutionsAnyMessage, ExecutionsByMachine: byMachine}
	}
	return MultiBody{Date: res.Date, TotalExecutionCount: total, ExecutionsByMachine: byMachine}
}

// Success serializes res in the requested shape into a 200 envelope.
func Success(res aggregator.Result, multi bool) (Envelope, error) {
	var body any
	if multi {
		body = NewMultiBody(res)
	} else {
		body = NewSingleBody(res)
	}
	b, err := encode(body, "  ")
	if err != nil {
		return Envelope{}, fmt.Errorf("encode body: %w", err)
	}
	return Envelope{StatusCode: http.StatusOK, Body: b}, nil
}

// Failure converts err into a 500 envelope with {"error": message}.
func Failure(err error) Envelope {
	b, encErr := encode(map[string]string{"error": err.Error()}, "")
	if encErr != nil {
		b = `{"error":"internal error"}`
	}
	return Envelope{StatusCode: http.StatusInternalServerError, Body: b}
}

func encode(v any, indent string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
