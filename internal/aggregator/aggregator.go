package aggregator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nao-Mk2/sfn-executions-today/internal/model"
	"github.com/Nao-Mk2/sfn-executions-today/internal/util"
	"github.com/Nao-Mk2/sfn-executions-today/internal/window"
)

// ListFunc returns all executions of a state machine, every page included.
type ListFunc func(ctx context.Context, stateMachineArn string) ([]model.ExecutionSummary, error)

// DescribeFunc returns the input payload of an execution, nil when absent.
type DescribeFunc func(ctx context.Context, executionArn string) (*string, error)

// Stage names the step a machine failed in.
type Stage string

const (
	StageList     Stage = "list"
	StageDescribe Stage = "describe"
	StageQuery    Stage = "query"
)

// MachineError is the failure of one state machine's query.
type MachineError struct {
	StateMachineArn string
	Stage           Stage
	Err             error
}

func (e *MachineError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.StateMachineArn, e.Err)
}

func (e *MachineError) Unwrap() error { return e.Err }

// MachineResult is the outcome for one state machine: either the records
// that started inside the window or the error that stopped the query.
type MachineResult struct {
	StateMachineArn string
	Records         []model.ExecutionRecord
	Err             error
}

// Result groups today's executions per state machine. Machines without
// executions, including failed ones, are absent from both maps.
type Result struct {
	Date   string
	Counts map[string]int
	Groups map[string][]model.ExecutionRecord
	// Order lists the machines present in Groups, in configuration order.
	Order []string
}

// Total returns the number of executions across all machines.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Aggregator collects executions started inside a window across state machines.
type Aggregator struct {
	list     ListFunc
	describe DescribeFunc
	machines []string
	query    *util.InputQuery
	logger   *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInputQuery projects each execution input through q.
func WithInputQuery(q *util.InputQuery) Option {
	return func(a *Aggregator) { a.query = q }
}

// WithLogger sets the logger used to report per-machine failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an Aggregator over the given machines.
func New(list ListFunc, describe DescribeFunc, machines []string, opts ...Option) *Aggregator {
	a := &Aggregator{list: list, describe: describe, machines: machines, logger: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate queries every machine in order and groups the executions that
// started inside w. A failing machine is logged and contributes nothing.
func (a *Aggregator) Aggregate(ctx context.Context, w window.Window) Result {
	return Combine(w.Date(), a.Collect(ctx, w))
}

// Collect queries each machine sequentially and returns one result per machine.
func (a *Aggregator) Collect(ctx context.Context, w window.Window) []MachineResult {
	results := make([]MachineResult, 0, len(a.machines))
	for _, m := range a.machines {
		records, err := a.collectMachine(ctx, m, w)
		if err != nil {
			a.logger.ErrorContext(ctx, "error getting executions", "state_machine", m, "error", err)
			results = append(results, MachineResult{StateMachineArn: m, Err: err})
			continue
		}
		a.logger.DebugContext(ctx, "collected executions", "state_machine", m, "count", len(records))
		results = append(results, MachineResult{StateMachineArn: m, Records: records})
	}
	return results
}

func (a *Aggregator) collectMachine(ctx context.Context, machine string, w window.Window) ([]model.ExecutionRecord, error) {
	summaries, err := a.list(ctx, machine)
	if err != nil {
		return nil, &MachineError{StateMachineArn: machine, Stage: StageList, Err: err}
	}
	var records []model.ExecutionRecord
	for _, s := range summaries {
		if !w.Contains(s.StartDate) {
			continue
		}
		input, err := a.describe(ctx, s.ExecutionArn)
		if err != nil {
			return nil, &MachineError{StateMachineArn: machine, Stage: StageDescribe, Err: err}
		}
		extracted, _, err := a.query.Extract(input)
		if err != nil {
			return nil, &MachineError{StateMachineArn: machine, Stage: StageQuery, Err: err}
		}
		records = append(records, model.ExecutionRecord{
			ExecutionArn:     s.ExecutionArn,
			Status:           s.Status,
			StartDate:        model.FormatStartDate(s.StartDate),
			Input:            input,
			InputQueryResult: extracted,
			StateMachineArn:  machine,
		})
	}
	return records, nil
}

// Combine folds per-machine results into a Result. Failed machines and
// machines with no executions are omitted.
func Combine(date string, results []MachineResult) Result {
	r := Result{
		Date:   date,
		Counts: map[string]int{},
		Groups: map[string][]model.ExecutionRecord{},
	}
	for _, mr := range results {
		if mr.Err != nil || len(mr.Records) == 0 {
			continue
		}
		if _, seen := r.Groups[mr.StateMachineArn]; !seen {
			r.Order = append(r.Order, mr.StateMachineArn)
		}
		r.Groups[mr.StateMachineArn] = append(r.Groups[mr.StateMachineArn], mr.Records...)
		r.Counts[mr.StateMachineArn] = len(r.Groups[mr.StateMachineArn])
	}
	return r
}
