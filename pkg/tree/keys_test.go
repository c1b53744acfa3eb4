package tree

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/sitenav/pkg/model"
)

func press(t *testing.T, tr *Tree, focused string, k Key) Result {
	t.Helper()
	return tr.HandleKey(focused, k)
}

// TestScenarioCollapseSkipsChildren walks the [A, B[C, D], E] scenario:
// ArrowDown from B reaches C while expanded and E once B is collapsed.
func TestScenarioCollapseSkipsChildren(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	if res := press(t, tr, "B", KeyArrowDown); res.Focus != "C" || !res.Handled {
		t.Fatalf("ArrowDown from B = %+v, want focus C", res)
	}

	tr.Toggle("B")

	if res := press(t, tr, "B", KeyArrowDown); res.Focus != "E" {
		t.Fatalf("ArrowDown from collapsed B = %q, want E", res.Focus)
	}
	if res := press(t, tr, "E", KeyArrowUp); res.Focus != "B" {
		t.Fatalf("ArrowUp from E = %q, want B", res.Focus)
	}
}

// TestArrowKeysAtEdges verifies focus does not wrap
func TestArrowKeysAtEdges(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	res := press(t, tr, "E", KeyArrowDown)
	if res.Focus != "E" || !res.Handled {
		t.Errorf("ArrowDown on last = %+v, want focus E handled", res)
	}
	res = press(t, tr, "A", KeyArrowUp)
	if res.Focus != "A" || !res.Handled {
		t.Errorf("ArrowUp on first = %+v, want focus A handled", res)
	}
}

// TestHomeEnd verifies Home/End from any depth and with no focus
func TestHomeEnd(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	for _, focused := range []string{"", "A", "C", "E", "missing"} {
		if res := press(t, tr, focused, KeyHome); res.Focus != "A" || !res.Handled {
			t.Errorf("Home from %q = %+v, want A", focused, res)
		}
		if res := press(t, tr, focused, KeyEnd); res.Focus != "E" || !res.Handled {
			t.Errorf("End from %q = %+v, want E", focused, res)
		}
	}

	// End lands on the deepest last visible node
	items := sampleItems()[:2]
	tr = mustBuild(t, items, model.ActiveRecord{}, true)
	if res := press(t, tr, "A", KeyEnd); res.Focus != "D" {
		t.Errorf("End = %q, want D", res.Focus)
	}
}

// TestHomeEndEmptyTree verifies no focus is invented for an empty tree
func TestHomeEndEmptyTree(t *testing.T) {
	tr := mustBuild(t, nil, model.ActiveRecord{}, true)
	if res := press(t, tr, "", KeyHome); res.Focus != "" {
		t.Errorf("Home on empty tree = %q, want empty", res.Focus)
	}
}

// TestNoFocusIgnoresArrows verifies arrows are no-ops without focus
func TestNoFocusIgnoresArrows(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)
	for _, k := range []Key{KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight, KeyEnter} {
		res := press(t, tr, "", k)
		if res.Focus != "" || res.Handled {
			t.Errorf("%s without focus = %+v, want unhandled no-op", k, res)
		}
	}
}

// TestStructuralMismatchIsSwallowed verifies unknown focus leaves state alone
func TestStructuralMismatchIsSwallowed(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	for _, k := range []Key{KeyArrowUp, KeyArrowDown} {
		res := press(t, tr, "outside", k)
		if res.Focus != "outside" || res.Handled {
			t.Errorf("%s from outside = %+v, want unchanged and unhandled", k, res)
		}
	}

	_, err := tr.Step("outside", KeyArrowDown)
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Errorf("Step error = %v, want ErrStructuralMismatch", err)
	}
	got, err := tr.Step("A", KeyArrowDown)
	if err != nil || got != "B" {
		t.Errorf("Step(A, down) = %q, %v; want B", got, err)
	}
}

// TestArrowFromFocusInsideCollapsedSubtree verifies document-order movement
// when focus was left on a node that is no longer visible.
func TestArrowFromFocusInsideCollapsedSubtree(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)
	tr.Toggle("B")

	if res := press(t, tr, "C", KeyArrowDown); res.Focus != "E" {
		t.Errorf("ArrowDown from hidden C = %q, want E", res.Focus)
	}
	if res := press(t, tr, "D", KeyArrowUp); res.Focus != "B" {
		t.Errorf("ArrowUp from hidden D = %q, want B", res.Focus)
	}
}

// TestArrowRight verifies expand-then-descend
func TestArrowRight(t *testing.T) {
	items := sampleItems()
	items[1].Collapsed = true
	tr := mustBuild(t, items, model.ActiveRecord{}, true)

	res := press(t, tr, "B", KeyArrowRight)
	if res.Focus != "B" || !res.Changed || !tr.Node("B").Expanded {
		t.Fatalf("first ArrowRight = %+v, want B expanded in place", res)
	}
	res = press(t, tr, "B", KeyArrowRight)
	if res.Focus != "C" || res.Changed {
		t.Fatalf("second ArrowRight = %+v, want move to C", res)
	}
	res = press(t, tr, "C", KeyArrowRight)
	if res.Focus != "C" || res.Changed {
		t.Errorf("ArrowRight on leaf = %+v, want no-op", res)
	}
}

// TestArrowLeft verifies collapse-then-ascend
func TestArrowLeft(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	res := press(t, tr, "C", KeyArrowLeft)
	if res.Focus != "B" {
		t.Fatalf("ArrowLeft from C = %q, want B", res.Focus)
	}
	res = press(t, tr, "B", KeyArrowLeft)
	if res.Focus != "B" || !res.Changed || tr.Node("B").Expanded {
		t.Fatalf("ArrowLeft on expanded B = %+v, want collapse", res)
	}
	res = press(t, tr, "B", KeyArrowLeft)
	if res.Focus != "B" || res.Changed {
		t.Errorf("ArrowLeft on collapsed root = %+v, want no-op", res)
	}
}

// TestArrowLeftNonCollapsible verifies Left always ascends when collapse is disabled
func TestArrowLeftNonCollapsible(t *testing.T) {
	items := []model.NavItem{
		{ID: "p", Label: "P", Children: []model.NavItem{
			{ID: "q", Label: "Q", Children: []model.NavItem{{ID: "r", Label: "R"}}},
		}},
	}
	tr := mustBuild(t, items, model.ActiveRecord{}, false)
	if res := press(t, tr, "q", KeyArrowLeft); res.Focus != "p" || res.Changed {
		t.Errorf("ArrowLeft = %+v, want move to p", res)
	}
}

// TestEnter verifies toggling parents and activating leaves
func TestEnter(t *testing.T) {
	tr := mustBuild(t, sampleItems(), model.ActiveRecord{}, true)

	res := press(t, tr, "B", KeyEnter)
	if !res.Changed || tr.Node("B").Expanded || res.Activate {
		t.Errorf("Enter on parent = %+v, want toggle", res)
	}
	res = press(t, tr, "A", KeyEnter)
	if !res.Activate || res.URL != "/a" || res.Focus != "A" {
		t.Errorf("Enter on leaf = %+v, want activate /a", res)
	}
}

// TestParseKey verifies DOM and legacy key names
func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		ok   bool
	}{
		{"ArrowUp", KeyArrowUp, true},
		{"arrowdown", KeyArrowDown, true},
		{"Up", KeyArrowUp, true},
		{"Home", KeyHome, true},
		{"END", KeyEnd, true},
		{"Left", KeyArrowLeft, true},
		{"ArrowRight", KeyArrowRight, true},
		{"Enter", KeyEnter, true},
		{"Tab", KeyNone, false},
		{"", KeyNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseKey(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKey(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if !KeyHome.IsRootKey() || KeyEnter.IsRootKey() {
		t.Error("IsRootKey misclassifies keys")
	}
	if KeyArrowDown.String() != "ArrowDown" || KeyNone.String() != "None" {
		t.Error("unexpected key names")
	}
}
