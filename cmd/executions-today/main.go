package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/Nao-Mk2/sfn-executions-today/cmd"
)

func main() {
	// Parse flags/env/config file and validate
	opts, err := cmd.CollectOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(code)
	}
	logger := cmd.NewLogger(opts.Verbose)

	ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
		AwsRequestID: uuid.NewString(),
	})
	h, err := cmd.NewHandler(ctx, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create handler: %v\n", err)
		os.Exit(1)
	}

	env, _ := h.Handle(ctx, nil)
	fmt.Println(env.Body)
	if env.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
