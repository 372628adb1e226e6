package cmd

import (
	"context"
	"log/slog"

	"github.com/Nao-Mk2/sfn-executions-today/internal/aggregator"
	"github.com/Nao-Mk2/sfn-executions-today/internal/client"
	"github.com/Nao-Mk2/sfn-executions-today/internal/handler"
	"github.com/Nao-Mk2/sfn-executions-today/internal/util"
)

// NewHandler wires the Step Functions client, aggregator and handler from o.
func NewHandler(ctx context.Context, o *Options, logger *slog.Logger) (*handler.Handler, error) {
	query, err := util.CompileInputQuery(o.InputQuery)
	if err != nil {
		return nil, err
	}
	sfnClient, err := client.NewStepFunctionsClient(ctx, client.AuthOptions{Region: o.Region, Profile: o.Profile})
	if err != nil {
		return nil, err
	}
	agg := aggregator.New(sfnClient.ListExecutions, sfnClient.DescribeInput, o.Machines(),
		aggregator.WithInputQuery(query),
		aggregator.WithLogger(logger),
	)
	return handler.New(agg, o.OffsetHours, o.MultiBody(), logger), nil
}
