package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dukex/siteflow/pkg/registry"
	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
)

var (
	// ErrInvalidDefinitions is returned when at least one file fails validation.
	ErrInvalidDefinitions = errors.New("invalid workflow definitions found")
	ErrNoDefinitionFiles  = errors.New("no definition files given")
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate workflow definition files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			definitionsPathFlag(),
		},
		Action: func(_ context.Context, command *cli.Command) error {
			files, err := definitionFiles(command.String("definitions-path"), command.Args().Slice())
			if err != nil {
				return err
			}

			if len(files) == 0 {
				return ErrNoDefinitionFiles
			}

			out := command.Root().Writer
			validate := validator.New(validator.WithRequiredStructEnabled())
			invalid := 0

			for _, file := range files {
				if err := validateFile(validate, file); err != nil {
					invalid++

					_, _ = fmt.Fprintf(out, "INVALID %s: %v\n", file, err)

					continue
				}

				_, _ = fmt.Fprintf(out, "VALID   %s\n", file)
			}

			_, _ = fmt.Fprintf(out, "\n%d valid, %d invalid\n", len(files)-invalid, invalid)

			if invalid > 0 {
				return ErrInvalidDefinitions
			}

			return nil
		},
	}
}

func validateFile(validate *validator.Validate, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	definition, err := registry.ParseDefinition(file, data)
	if err != nil {
		return err
	}

	return registry.Validate(validate, definition)
}

// definitionFiles returns args followed by every definition file in dir.
func definitionFiles(dir string, args []string) ([]string, error) {
	files := append([]string(nil), args...)

	if dir == "" {
		return files, nil
	}

	for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}

		files = append(files, matches...)
	}

	return files, nil
}
