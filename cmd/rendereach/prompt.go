package main

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

var errAborted = errors.New("aborted")

// templatePicker asks the user to choose one of names.
type templatePicker func(ctx context.Context, names []string) (string, error)

func surveyPicker(ctx context.Context, names []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", errors.New("no templates found")
	}
	var out string
	prompt := &survey.Select{
		Message:  "Template",
		Options:  names,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", errAborted
		}
		return "", err
	}
	return out, nil
}
