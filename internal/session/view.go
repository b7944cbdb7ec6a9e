package session

import (
	"sort"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

// View is the ordered conversation as the client sees it: confirmed turns
// first, in store order, then turns still waiting for a durable write.
type View []domain.ViewTurn

// Reconcile merges a view with the confirmed turns read from the store.
// Entries are matched by LocalID. The result holds every confirmed turn in
// the given order, followed by the view's pending turns that the store does
// not know yet, in their original order.
func Reconcile(view View, confirmed []domain.Turn) View {
	known := make(map[string]bool, len(confirmed))
	out := make(View, 0, len(confirmed)+len(view))
	for _, t := range confirmed {
		known[t.LocalID] = true
		out = append(out, domain.ViewTurn{Turn: t})
	}
	for _, vt := range view {
		if vt.Pending && !known[vt.LocalID] {
			out = append(out, vt)
		}
	}
	return out
}

// Confirmed returns the confirmed turns of the view.
func (v View) Confirmed() []domain.Turn {
	out := make([]domain.Turn, 0, len(v))
	for _, vt := range v {
		if !vt.Pending {
			out = append(out, vt.Turn)
		}
	}
	return out
}

// Pending returns the number of turns not yet written.
func (v View) Pending() int {
	n := 0
	for _, vt := range v {
		if vt.Pending {
			n++
		}
	}
	return n
}

func (v View) indexOf(localID string) int {
	for i, vt := range v {
		if vt.LocalID == localID {
			return i
		}
	}
	return -1
}

// insertAfter places vt right after the entry with localID, or at the end.
func (v View) insertAfter(localID string, vt domain.ViewTurn) View {
	i := v.indexOf(localID)
	if i < 0 {
		return append(v, vt)
	}
	v = append(v, domain.ViewTurn{})
	copy(v[i+2:], v[i+1:])
	v[i+1] = vt
	return v
}

// mergeConfirmed adds or replaces t among confirmed turns of one thread,
// keeping them ordered by Seq.
func mergeConfirmed(confirmed []domain.Turn, t domain.Turn) []domain.Turn {
	replaced := false
	for i := range confirmed {
		if confirmed[i].LocalID == t.LocalID {
			confirmed[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		confirmed = append(confirmed, t)
	}
	sort.SliceStable(confirmed, func(i, j int) bool { return confirmed[i].Seq < confirmed[j].Seq })
	return confirmed
}
