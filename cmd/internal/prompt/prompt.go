// Package prompt asks the operator single interactive questions.
package prompt

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/core"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/cockroachdb/errors"
)

// ErrCancelled is returned when the operator aborts a prompt (escape or Ctrl-C).
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks one question per call.
type Prompter interface {
	Confirm(message string) (bool, error)
	Secret(message string) (string, error)
	Select(item string, choices []string) (string, error)
	MultiSelect(items string, choices []string) ([]string, error)
	Pause(message string) error
}

// Survey is the terminal Prompter.
type Survey struct {
	opts []survey.AskOpt
}

var _ Prompter = (*Survey)(nil)

func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{opts: opts}
}

func (s *Survey) Confirm(message string) (bool, error) {
	var answer bool
	err := s.ask(&survey.Confirm{Message: message, Default: true}, &answer)
	return answer, err
}

func (s *Survey) Secret(message string) (string, error) {
	var answer string
	err := s.ask(&survey.Password{Message: message}, &answer)
	return answer, err
}

func (s *Survey) Select(item string, choices []string) (string, error) {
	if len(choices) == 0 {
		return "", errors.Newf("no %s to select from", item)
	}

	var idx int
	err := s.ask(&survey.Select{
		Message:  fmt.Sprintf("Select the %s using arrow keys or type its number then enter:", item),
		Options:  NumberedLabels(choices),
		PageSize: len(choices),
	}, &idx)
	if err != nil {
		return "", err
	}
	return choices[idx], nil
}

func (s *Survey) MultiSelect(items string, choices []string) ([]string, error) {
	if len(choices) == 0 {
		return nil, errors.Newf("no %s to select from", items)
	}

	var picked []string
	err := s.ask(&survey.MultiSelect{
		Message:  fmt.Sprintf("Select %s using the arrow keys and spacebar then enter:", items),
		Options:  choices,
		PageSize: len(choices),
	}, &picked, survey.WithValidator(atLeastOne(items)))
	return picked, err
}

func (s *Survey) Pause(message string) error {
	var discard string
	return s.ask(&survey.Input{Message: message}, &discard)
}

func (s *Survey) ask(p survey.Prompt, response any, extra ...survey.AskOpt) error {
	opts := append(append([]survey.AskOpt{}, s.opts...), extra...)
	if err := survey.AskOne(p, response, opts...); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errors.Mark(errors.Wrap(err, "prompt"), ErrCancelled)
	}
	return errors.Wrap(err, "prompt")
}

// NumberedLabels renders choices as "1. choice" so that typing the number
// filters straight to it.
func NumberedLabels(choices []string) []string {
	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return labels
}

func atLeastOne(items string) survey.Validator {
	return func(ans any) error {
		if opts, ok := ans.([]core.OptionAnswer); ok && len(opts) == 0 {
			return errors.Newf("Select at least one of the %s.", items)
		}
		return nil
	}
}
