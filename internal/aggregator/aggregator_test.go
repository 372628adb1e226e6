package aggregator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nao-Mk2/sfn-executions-today/internal/model"
	"github.com/Nao-Mk2/sfn-executions-today/internal/util"
	"github.com/Nao-Mk2/sfn-executions-today/internal/window"
)

type fakeSFN struct {
	executions map[string][]model.ExecutionSummary
	listErr    map[string]error
	inputs     map[string]*string
	descErr    map[string]error
	listed     []string
	described  []string
}

func (f *fakeSFN) List(ctx context.Context, machine string) ([]model.ExecutionSummary, error) {
	f.listed = append(f.listed, machine)
	if err := f.listErr[machine]; err != nil {
		return nil, err
	}
	return f.executions[machine], nil
}

func (f *fakeSFN) Describe(ctx context.Context, arn string) (*string, error) {
	f.described = append(f.described, arn)
	if err := f.descErr[arn]; err != nil {
		return nil, err
	}
	return f.inputs[arn], nil
}

func strptr(s string) *string { return &s }

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

var testWindow = window.ComputeToday(1, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

func summary(machine, arn string, start time.Time) model.ExecutionSummary {
	return model.ExecutionSummary{ExecutionArn: arn, StateMachineArn: machine, Status: "SUCCEEDED", StartDate: start}
}

func TestAggregateBoundaries(t *testing.T) {
	w := testWindow
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{
			"A": {
				summary("A", "at-start", w.Start),
				summary("A", "before-start", w.Start.Add(-time.Second)),
				summary("A", "after-start", w.Start.Add(time.Second)),
				summary("A", "at-end", w.End),
				summary("A", "last-moment", w.End.Add(-time.Millisecond)),
			},
		},
		inputs: map[string]*string{"at-start": strptr(`{"k":1}`)},
	}
	agg := New(f.List, f.Describe, []string{"A"}, WithLogger(quietLogger()))
	res := agg.Aggregate(context.Background(), w)

	require.Equal(t, 3, res.Counts["A"])
	var arns []string
	for _, r := range res.Groups["A"] {
		arns = append(arns, r.ExecutionArn)
		assert.Equal(t, "A", r.StateMachineArn)
	}
	assert.Equal(t, []string{"at-start", "after-start", "last-moment"}, arns)
	// Only matching executions are described, in listing order.
	assert.Equal(t, []string{"at-start", "after-start", "last-moment"}, f.described)
	assert.Equal(t, `{"k":1}`, *res.Groups["A"][0].Input)
	assert.Nil(t, res.Groups["A"][1].Input)
	assert.Equal(t, "2024-03-14 23:00:00+00:00", res.Groups["A"][0].StartDate)
	assert.Equal(t, "2024-03-15", res.Date)
}

func TestAggregateNoMachines(t *testing.T) {
	f := &fakeSFN{}
	res := New(f.List, f.Describe, nil, WithLogger(quietLogger())).Aggregate(context.Background(), testWindow)
	assert.Empty(t, res.Counts)
	assert.Empty(t, res.Groups)
	assert.Empty(t, res.Order)
	assert.Zero(t, res.Total())
	assert.Empty(t, f.listed)
}

func TestAggregateListFailureIsolated(t *testing.T) {
	w := testWindow
	boom := errors.New("access denied")
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{
			"B": {summary("B", "b1", w.Start.Add(time.Hour)), summary("B", "b2", w.Start.Add(2*time.Hour))},
		},
		listErr: map[string]error{"A": boom},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	agg := New(f.List, f.Describe, []string{"A", "B"}, WithLogger(logger))

	results := agg.Collect(context.Background(), w)
	require.Len(t, results, 2)
	var me *MachineError
	require.ErrorAs(t, results[0].Err, &me)
	assert.Equal(t, StageList, me.Stage)
	assert.Equal(t, "A", me.StateMachineArn)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Contains(t, buf.String(), `"state_machine":"A"`)

	res := Combine(w.Date(), results)
	_, present := res.Counts["A"]
	assert.False(t, present, "failed machine must be absent, not zero")
	_, present = res.Groups["A"]
	assert.False(t, present)
	assert.Equal(t, 2, res.Counts["B"])
	assert.Len(t, res.Groups["B"], 2)
	assert.Equal(t, []string{"A", "B"}, f.listed)
	assert.Equal(t, []string{"B"}, res.Order)
}

func TestAggregateDescribeFailureDiscardsMachine(t *testing.T) {
	w := testWindow
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{
			"A": {summary("A", "a1", w.Start), summary("A", "a2", w.Start.Add(time.Minute)), summary("A", "a3", w.Start.Add(2*time.Minute))},
			"B": {summary("B", "b1", w.Start)},
		},
		descErr: map[string]error{"a2": errors.New("throttled")},
	}
	res := New(f.List, f.Describe, []string{"A", "B"}, WithLogger(quietLogger())).Aggregate(context.Background(), w)

	_, present := res.Groups["A"]
	assert.False(t, present, "partial results for A must be discarded")
	assert.Equal(t, map[string]int{"B": 1}, res.Counts)
	// Describing stops at the first failure.
	assert.Equal(t, []string{"a1", "a2", "b1"}, f.described)
}

func TestAggregateOmitsMachinesWithoutMatches(t *testing.T) {
	w := testWindow
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{
			"A": {summary("A", "yesterday", w.Start.Add(-time.Hour))},
			"B": {summary("B", "b1", w.Start)},
		},
	}
	res := New(f.List, f.Describe, []string{"A", "B", "C"}, WithLogger(quietLogger())).Aggregate(context.Background(), w)
	assert.Equal(t, map[string]int{"B": 1}, res.Counts)
	assert.Equal(t, []string{"B"}, res.Order)
	assert.Equal(t, 1, res.Total())
	assert.Equal(t, []string{"b1"}, f.described)
}

func TestAggregateCountsMatchGroups(t *testing.T) {
	w := testWindow
	var execs []model.ExecutionSummary
	for i := 0; i < 7; i++ {
		execs = append(execs, summary("M", "m"+string(rune('0'+i)), w.Start.Add(time.Duration(i)*time.Hour)))
	}
	f := &fakeSFN{executions: map[string][]model.ExecutionSummary{"M": execs}}
	res := New(f.List, f.Describe, []string{"M"}, WithLogger(quietLogger())).Aggregate(context.Background(), w)

	require.Equal(t, 7, res.Counts["M"])
	require.Len(t, res.Groups["M"], res.Counts["M"])
	for i, r := range res.Groups["M"] {
		assert.Equal(t, "M", r.StateMachineArn)
		assert.Equal(t, execs[i].ExecutionArn, r.ExecutionArn)
	}
}

func TestAggregateInputQuery(t *testing.T) {
	w := testWindow
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{
			"A": {summary("A", "a1", w.Start), summary("A", "a2", w.Start)},
			"B": {summary("B", "b1", w.Start)},
		},
		inputs: map[string]*string{
			"a1": strptr(`{"farm":"north"}`),
			"a2": strptr(`{"other":true}`),
			"b1": strptr(`{"farm":"x"}`),
		},
	}
	q, err := util.CompileInputQuery("farm")
	require.NoError(t, err)
	res := New(f.List, f.Describe, []string{"A", "B"}, WithLogger(quietLogger()), WithInputQuery(q)).Aggregate(context.Background(), w)

	require.Len(t, res.Groups["A"], 2)
	assert.Equal(t, "north", res.Groups["A"][0].InputQueryResult)
	assert.Empty(t, res.Groups["A"][1].InputQueryResult)
	assert.Equal(t, "x", res.Groups["B"][0].InputQueryResult)
}

func TestAggregateInputQueryErrorFailsMachine(t *testing.T) {
	w := testWindow
	f := &fakeSFN{
		executions: map[string][]model.ExecutionSummary{"A": {summary("A", "a1", w.Start)}},
		inputs:     map[string]*string{"a1": strptr(`{"n":"text"}`)},
	}
	q, err := util.CompileInputQuery("abs(n)")
	require.NoError(t, err)
	agg := New(f.List, f.Describe, []string{"A"}, WithLogger(quietLogger()), WithInputQuery(q))

	results := agg.Collect(context.Background(), w)
	require.Len(t, results, 1)
	var me *MachineError
	require.ErrorAs(t, results[0].Err, &me)
	assert.Equal(t, StageQuery, me.Stage)
}

func TestCombineMergesDuplicateMachines(t *testing.T) {
	rec := model.ExecutionRecord{ExecutionArn: "x", StateMachineArn: "A"}
	res := Combine("2024-03-15", []MachineResult{
		{StateMachineArn: "A", Records: []model.ExecutionRecord{rec}},
		{StateMachineArn: "A", Records: []model.ExecutionRecord{rec}},
	})
	assert.Equal(t, 2, res.Counts["A"])
	assert.Equal(t, []string{"A"}, res.Order)
}

func TestMachineErrorMessage(t *testing.T) {
	err := &MachineError{StateMachineArn: "arn:m", Stage: StageDescribe, Err: errors.New("boom")}
	assert.Equal(t, "describe arn:m: boom", err.Error())
}
