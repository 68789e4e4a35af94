package planning

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParsePlan decodes solver output of the form
//
//	0.000: (move r2d2 wp_control wp1)  [5.000]
//	5.001: (patrol r2d2 wp1)  [1.000]
//
// one step per line. Blank lines are skipped. An empty result yields
// ErrNoPlan so callers can distinguish "no plan" from transport errors.
func ParsePlan(text string) (*Plan, error) {
	plan := &Plan{}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		step, err := parseStep(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedPlan, i+1, err)
		}
		plan.Steps = append(plan.Steps, step)
	}
	if len(plan.Steps) == 0 {
		return nil, ErrNoPlan
	}
	return plan, nil
}

func parseStep(line string) (Step, error) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return Step{}, fmt.Errorf("missing start time in %q", line)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(line[:colon]), 64)
	if err != nil {
		return Step{}, fmt.Errorf("bad start time in %q", line)
	}

	rest := strings.TrimSpace(line[colon+1:])
	open := strings.Index(rest, "(")
	closing := strings.Index(rest, ")")
	if open < 0 || closing < open {
		return Step{}, fmt.Errorf("missing action term in %q", line)
	}
	fields := strings.Fields(rest[open+1 : closing])
	if len(fields) == 0 {
		return Step{}, fmt.Errorf("empty action term in %q", line)
	}

	step := Step{
		Start:  start,
		Action: fields[0],
		Args:   fields[1:],
	}

	tail := rest[closing+1:]
	if lb := strings.Index(tail, "["); lb >= 0 {
		rb := strings.Index(tail, "]")
		if rb < lb {
			return Step{}, fmt.Errorf("unterminated duration in %q", line)
		}
		seconds, err := strconv.ParseFloat(strings.TrimSpace(tail[lb+1:rb]), 64)
		if err != nil {
			return Step{}, fmt.Errorf("bad duration in %q", line)
		}
		step.Duration = time.Duration(seconds * float64(time.Second))
	}
	return step, nil
}

// FormatPlan renders a plan back into solver text form.
func FormatPlan(p *Plan) string {
	var b strings.Builder
	for _, s := range p.Steps {
		fmt.Fprintf(&b, "%.3f: %s  [%.3f]\n", s.Start, s.Text(), s.Duration.Seconds())
	}
	return b.String()
}
