package planning

import (
	"sort"
	"strings"

	"github.com/teslashibe/go-patrol/pkg/knowledge"
)

// ProblemSource is the slice of the knowledge store the problem builder
// reads. *knowledge.Store satisfies it.
type ProblemSource interface {
	Instances() []knowledge.Instance
	Predicates() []string
	Goal() string
}

var _ ProblemSource = (*knowledge.Store)(nil)

// BuildProblem renders a PDDL problem from the source's instances, facts,
// and goal. Objects are grouped by type and sorted so the output is stable
// for a given world state.
func BuildProblem(name, domain string, source ProblemSource) string {
	var b strings.Builder

	b.WriteString("(define (problem " + name + ")\n")
	b.WriteString("(:domain " + domain + ")\n")

	b.WriteString("(:objects\n")
	for _, group := range groupByType(source.Instances()) {
		b.WriteString("  " + strings.Join(group.names, " ") + " - " + group.typ + "\n")
	}
	b.WriteString(")\n")

	b.WriteString("(:init\n")
	for _, fact := range source.Predicates() {
		b.WriteString("  " + fact + "\n")
	}
	b.WriteString(")\n")

	goal := source.Goal()
	if goal == "" {
		goal = "(and)"
	}
	b.WriteString("(:goal " + goal + ")\n")
	b.WriteString(")\n")
	return b.String()
}

type objectGroup struct {
	typ   string
	names []string
}

func groupByType(instances []knowledge.Instance) []objectGroup {
	byType := make(map[string][]string)
	for _, inst := range instances {
		byType[inst.Type] = append(byType[inst.Type], inst.Name)
	}

	types := make([]string, 0, len(byType))
	for typ := range byType {
		types = append(types, typ)
	}
	sort.Strings(types)

	groups := make([]objectGroup, 0, len(types))
	for _, typ := range types {
		names := byType[typ]
		sort.Strings(names)
		groups = append(groups, objectGroup{typ: typ, names: names})
	}
	return groups
}
