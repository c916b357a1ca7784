package common

import (
	"context"
	"fmt"

	"applykit/internal/errors"
)

// CreateInputFunc defines how to build an operation input from file contents
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// OperationFunc is the signature of the work a file-based command performs
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// LogDetailsFunc defines how to log the start of an operation
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// RunFileCommand encapsulates the common logic for file-based CLI commands:
// validate and read the input files, build the operation input, run it, and
// hand the result to the output formatter.
func RunFileCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	args []string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(cmdConfig.MaxFileSize, args...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	logDetails(input, cmdConfig)

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
