package knowledge

import (
	"errors"
	"testing"
)

func TestAddInstance(t *testing.T) {
	s := New()

	if err := s.AddInstance("r2d2", "robot"); err != nil {
		t.Fatalf("AddInstance() error = %v", err)
	}
	if err := s.AddInstance("wp1", "waypoint"); err != nil {
		t.Fatalf("AddInstance() error = %v", err)
	}

	got := s.Instances()
	if len(got) != 2 {
		t.Fatalf("Instances() returned %d entries, want 2", len(got))
	}
	if got[0] != (Instance{Name: "r2d2", Type: "robot"}) {
		t.Errorf("Instances()[0] = %+v, want r2d2 robot", got[0])
	}
}

func TestAddInstanceDuplicate(t *testing.T) {
	s := New()

	if err := s.AddInstance("r2d2", "robot"); err != nil {
		t.Fatalf("AddInstance() error = %v", err)
	}
	if err := s.AddInstance("r2d2", "robot"); err != nil {
		t.Errorf("re-adding same instance: error = %v, want nil", err)
	}
	if err := s.AddInstance("r2d2", "waypoint"); !errors.Is(err, ErrConflictingType) {
		t.Errorf("conflicting type: error = %v, want ErrConflictingType", err)
	}
	if got := len(s.Instances()); got != 1 {
		t.Errorf("Instances() has %d entries, want 1", got)
	}
}

func TestAddInstanceEmpty(t *testing.T) {
	s := New()

	if err := s.AddInstance("", "robot"); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name: error = %v, want ErrEmptyName", err)
	}
	if err := s.AddInstance("r2d2", ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty type: error = %v, want ErrEmptyName", err)
	}
}

func TestPredicates(t *testing.T) {
	s := New()

	if err := s.AddPredicate("(robot_at r2d2 wp_control)"); err != nil {
		t.Fatalf("AddPredicate() error = %v", err)
	}
	if err := s.AddPredicate("(connected wp_control wp1)"); err != nil {
		t.Fatalf("AddPredicate() error = %v", err)
	}

	if !s.HasPredicate("(robot_at r2d2 wp_control)") {
		t.Error("HasPredicate() = false for asserted fact")
	}

	got := s.Predicates()
	want := []string{"(robot_at r2d2 wp_control)", "(connected wp_control wp1)"}
	if len(got) != len(want) {
		t.Fatalf("Predicates() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Predicates()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPredicateNormalization(t *testing.T) {
	s := New()

	if err := s.AddPredicate("( robot_at   r2d2  wp1 )"); err != nil {
		t.Fatalf("AddPredicate() error = %v", err)
	}
	if err := s.AddPredicate("(robot_at r2d2 wp1)"); err != nil {
		t.Fatalf("AddPredicate() error = %v", err)
	}

	if got := len(s.Predicates()); got != 1 {
		t.Errorf("Predicates() has %d entries, want 1 after dedup", got)
	}
	if !s.HasPredicate("(robot_at  r2d2 wp1)") {
		t.Error("HasPredicate() should match regardless of spacing")
	}
}

func TestAddPredicateMalformed(t *testing.T) {
	s := New()

	for _, fact := range []string{"robot_at r2d2 wp1", "()", "", "(unclosed"} {
		if err := s.AddPredicate(fact); !errors.Is(err, ErrMalformedFact) {
			t.Errorf("AddPredicate(%q) error = %v, want ErrMalformedFact", fact, err)
		}
	}
}

func TestRemovePredicate(t *testing.T) {
	s := New()

	if err := s.AddPredicate("(patrolled wp1)"); err != nil {
		t.Fatalf("AddPredicate() error = %v", err)
	}

	if !s.RemovePredicate("(patrolled wp1)") {
		t.Error("RemovePredicate() = false for asserted fact")
	}
	if s.RemovePredicate("(patrolled wp1)") {
		t.Error("RemovePredicate() = true for already removed fact")
	}
	if s.HasPredicate("(patrolled wp1)") {
		t.Error("HasPredicate() = true after removal")
	}
}

func TestGoal(t *testing.T) {
	s := New()

	if got := s.Goal(); got != "" {
		t.Errorf("Goal() = %q on fresh store, want empty", got)
	}

	s.SetGoal("(and (robot_at r2d2 wp4))")
	if got, want := s.Goal(), "(and (robot_at r2d2 wp4))"; got != want {
		t.Errorf("Goal() = %q, want %q", got, want)
	}

	s.SetGoal("(and (robot_at r2d2 wp1))")
	if got, want := s.Goal(), "(and (robot_at r2d2 wp1))"; got != want {
		t.Errorf("Goal() after reset = %q, want %q", got, want)
	}
}
