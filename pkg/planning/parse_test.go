package planning

import (
	"errors"
	"testing"
	"time"
)

func TestParsePlan(t *testing.T) {
	text := "0.000: (move r2d2 wp_control wp1)  [5.000]\n" +
		"5.001: (patrol r2d2 wp1)  [1.000]\n"

	plan, err := ParsePlan(text)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if got, want := len(plan.Steps), 2; got != want {
		t.Fatalf("len(Steps) = %d, want %d", got, want)
	}

	first := plan.Steps[0]
	if first.Action != "move" {
		t.Errorf("Steps[0].Action = %q, want move", first.Action)
	}
	if len(first.Args) != 3 || first.Args[2] != "wp1" {
		t.Errorf("Steps[0].Args = %v, want [r2d2 wp_control wp1]", first.Args)
	}
	if first.Duration != 5*time.Second {
		t.Errorf("Steps[0].Duration = %v, want 5s", first.Duration)
	}

	second := plan.Steps[1]
	if second.Start != 5.001 {
		t.Errorf("Steps[1].Start = %v, want 5.001", second.Start)
	}
	if got, want := second.Text(), "(patrol r2d2 wp1)"; got != want {
		t.Errorf("Steps[1].Text() = %q, want %q", got, want)
	}
}

func TestParsePlanSkipsBlankLines(t *testing.T) {
	text := "\n0.000: (move r2d2 wp1 wp2)  [5.000]\n\n\n"

	plan, err := ParsePlan(text)
	if err != nil {
		t.Fatalf("ParsePlan() error = %v", err)
	}
	if got := len(plan.Steps); got != 1 {
		t.Errorf("len(Steps) = %d, want 1", got)
	}
}

func TestParsePlanEmpty(t *testing.T) {
	if _, err := ParsePlan(""); !errors.Is(err, ErrNoPlan) {
		t.Errorf("ParsePlan(\"\") error = %v, want ErrNoPlan", err)
	}
}

func TestParsePlanMalformed(t *testing.T) {
	for _, text := range []string{
		"(move r2d2 wp1 wp2)",
		"abc: (move r2d2 wp1 wp2)  [5.000]",
		"0.000: move r2d2  [5.000]",
		"0.000: ()  [5.000]",
		"0.000: (move r2d2 wp1 wp2)  [abc]",
	} {
		if _, err := ParsePlan(text); !errors.Is(err, ErrMalformedPlan) {
			t.Errorf("ParsePlan(%q) error = %v, want ErrMalformedPlan", text, err)
		}
	}
}

func TestFormatPlanRoundTrip(t *testing.T) {
	plan := &Plan{Steps: []Step{
		{Start: 0, Action: "move", Args: []string{"r2d2", "wp_control", "wp1"}, Duration: 5 * time.Second},
		{Start: 5.001, Action: "patrol", Args: []string{"r2d2", "wp1"}, Duration: time.Second},
	}}

	parsed, err := ParsePlan(FormatPlan(plan))
	if err != nil {
		t.Fatalf("ParsePlan(FormatPlan()) error = %v", err)
	}
	if got, want := len(parsed.Steps), len(plan.Steps); got != want {
		t.Fatalf("len(Steps) = %d, want %d", got, want)
	}
	for i := range plan.Steps {
		if got, want := parsed.Steps[i].Text(), plan.Steps[i].Text(); got != want {
			t.Errorf("Steps[%d].Text() = %q, want %q", i, got, want)
		}
	}
}
