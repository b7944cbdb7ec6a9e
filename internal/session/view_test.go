package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

func vt(localID string, seq int64, pending bool) domain.ViewTurn {
	t := domain.ViewTurn{Turn: domain.Turn{LocalID: localID, Seq: seq, Text: localID}, Pending: pending}
	if !pending {
		t.ID = "id-" + localID
	}
	return t
}

func localIDs(v View) []string {
	out := make([]string, len(v))
	for i, t := range v {
		out[i] = t.LocalID
		if t.Pending {
			out[i] += "*"
		}
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name      string
		view      View
		confirmed []domain.Turn
		want      []string
	}{
		{
			name: "empty",
			want: []string{},
		},
		{
			name:      "pending confirmed by store",
			view:      View{vt("a", 1, false), vt("b", 0, true)},
			confirmed: []domain.Turn{vt("a", 1, false).Turn, vt("b", 2, false).Turn},
			want:      []string{"a", "b"},
		},
		{
			name:      "pending kept after confirmed prefix",
			view:      View{vt("a", 1, false), vt("p", 0, true)},
			confirmed: []domain.Turn{vt("a", 1, false).Turn, vt("x", 2, false).Turn},
			want:      []string{"a", "x", "p*"},
		},
		{
			name:      "store order wins",
			view:      View{vt("b", 2, false), vt("a", 1, false)},
			confirmed: []domain.Turn{vt("a", 1, false).Turn, vt("b", 2, false).Turn},
			want:      []string{"a", "b"},
		},
		{
			name:      "pending order preserved",
			view:      View{vt("p1", 0, true), vt("p2", 0, true)},
			confirmed: nil,
			want:      []string{"p1*", "p2*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := localIDs(Reconcile(tt.view, tt.confirmed))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Reconcile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsertAfter(t *testing.T) {
	v := View{vt("u1", 0, true), vt("u2", 0, true)}
	v = v.insertAfter("u1", vt("a1", 0, true))
	v = v.insertAfter("missing", vt("z", 0, true))
	if diff := cmp.Diff([]string{"u1*", "a1*", "u2*", "z*"}, localIDs(v)); diff != "" {
		t.Fatalf("insertAfter mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeConfirmed(t *testing.T) {
	confirmed := []domain.Turn{vt("a", 1, false).Turn, vt("c", 3, false).Turn}
	merged := mergeConfirmed(confirmed, vt("b", 2, false).Turn)
	merged = mergeConfirmed(merged, vt("a", 1, false).Turn)
	got := localIDs(Reconcile(nil, merged))
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("mergeConfirmed mismatch (-want +got):\n%s", diff)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateIdle:              "idle",
		StatePendingFirstWrite: "pending_first_write",
		StateBound:             "bound",
	} {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
