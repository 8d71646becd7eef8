package prompt

import (
	"testing"

	"github.com/AlecAivazis/survey/v2/core"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
)

func TestNumberedLabels(t *testing.T) {
	t.Parallel()
	got := NumberedLabels([]string{"dev", "prod"})
	want := []string{"1. dev", "2. prod"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected labels (-want +got):\n%s", diff)
	}
}

func TestAtLeastOne(t *testing.T) {
	t.Parallel()
	validate := atLeastOne("stacks to deploy")

	err := validate([]core.OptionAnswer{})
	if err == nil {
		t.Fatal("expected error for empty selection")
	}
	if err.Error() != "Select at least one of the stacks to deploy." {
		t.Errorf("unexpected message: %v", err)
	}

	if err := validate([]core.OptionAnswer{{Value: "a", Index: 0}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTranslateInterrupt(t *testing.T) {
	t.Parallel()
	if err := translate(terminal.InterruptErr); !errors.Is(err, ErrCancelled) {
		t.Errorf("interrupt should map to ErrCancelled, got %v", err)
	}
	if err := translate(errors.New("boom")); errors.Is(err, ErrCancelled) {
		t.Error("other errors must not map to ErrCancelled")
	}
}
