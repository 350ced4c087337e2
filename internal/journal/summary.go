package journal

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"localgroup/internal/clock"
)

// NodeSummary aggregates one node's transitions.
type NodeSummary struct {
	Node        uint32
	Transitions int
	Acks        int
	Last        time.Time
}

// ElementSummary holds the final stamp each node reached for one element.
type ElementSummary struct {
	Element   uint8
	Stamps    map[uint32]clock.Stamp
	Converged bool
}

// Summary describes a merged set of journals.
type Summary struct {
	Nodes    []NodeSummary
	Elements []ElementSummary
	First    time.Time
	Last     time.Time
}

// Duration is the time from the first to the last transition.
func (s Summary) Duration() time.Duration {
	if s.First.IsZero() {
		return 0
	}
	return s.Last.Sub(s.First)
}

// Converged reports whether every element ended with the same stamp on all
// nodes that touched it.
func (s Summary) Converged() bool {
	for _, e := range s.Elements {
		if !e.Converged {
			return false
		}
	}
	return true
}

// Summarize folds events into a Summary. Events need not be ordered.
func Summarize(events []Event) Summary {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int { return a.Time.Compare(b.Time) })

	nodes := make(map[uint32]*NodeSummary)
	elems := make(map[uint8]map[uint32]clock.Stamp)
	var s Summary

	for i, ev := range sorted {
		if i == 0 {
			s.First = ev.Time
		}
		s.Last = ev.Time

		ns, ok := nodes[ev.Node]
		if !ok {
			ns = &NodeSummary{Node: ev.Node}
			nodes[ev.Node] = ns
		}
		ns.Transitions++
		if ev.Cause == CauseAck {
			ns.Acks++
		}
		ns.Last = ev.Time

		if elems[ev.Element] == nil {
			elems[ev.Element] = make(map[uint32]clock.Stamp)
		}
		elems[ev.Element][ev.Node] = ev.Stamp()
	}

	for _, ns := range nodes {
		s.Nodes = append(s.Nodes, *ns)
	}
	slices.SortFunc(s.Nodes, func(a, b NodeSummary) int { return cmpID(a.Node, b.Node) })

	for e, stamps := range elems {
		s.Elements = append(s.Elements, ElementSummary{
			Element:   e,
			Stamps:    stamps,
			Converged: allEqual(stamps),
		})
	}
	slices.SortFunc(s.Elements, func(a, b ElementSummary) int { return int(a.Element) - int(b.Element) })
	return s
}

func allEqual(stamps map[uint32]clock.Stamp) bool {
	var first clock.Stamp
	seen := false
	for _, st := range stamps {
		if !seen {
			first, seen = st, true
			continue
		}
		if st != first {
			return false
		}
	}
	return true
}

func cmpID(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// WriteText prints s as aligned columns.
func WriteText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tTRANSITIONS\tACKS\tLAST")
	for _, n := range s.Nodes {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", n.Node, n.Transitions, n.Acks, n.Last.Sub(s.First))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ELEMENT\tNODES\tCONVERGED")
	for _, e := range s.Elements {
		fmt.Fprintf(tw, "%d\t%d\t%t\n", e.Element, len(e.Stamps), e.Converged)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "time to convergence:\t%s\n", s.Duration())
	return tw.Flush()
}
