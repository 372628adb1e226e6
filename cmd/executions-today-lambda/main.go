package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Nao-Mk2/sfn-executions-today/cmd"
	"github.com/Nao-Mk2/sfn-executions-today/internal/response"
)

func main() {
	opts := cmd.EnvOptions()
	logger := cmd.NewJSONLogger(opts.Verbose)

	if msg, code := opts.Validate(); code != 0 {
		logger.Error("invalid configuration", "error", msg)
		os.Exit(code)
	}

	h, err := cmd.NewHandler(context.Background(), opts, logger)
	if err != nil {
		// Report setup failures per invocation instead of crash-looping the runtime.
		logger.Error("failed to initialise handler", "error", err)
		lambda.Start(func(ctx context.Context, _ json.RawMessage) (response.Envelope, error) {
			return response.Failure(err), nil
		})
		return
	}
	logger.Info("handler ready", "region", opts.Region, "state_machines", opts.Machines(), "offset_hours", opts.OffsetHours)
	lambda.Start(h.Handle)
}
