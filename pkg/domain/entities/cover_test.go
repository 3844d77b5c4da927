package entities

import "testing"

func TestCover_Membership(t *testing.T) {
	cover := &Cover{
		Facility: 0,
		Items:    []CoverItem{{Product: 0, Level: 1}, {Product: 2, Level: 0}},
		Weight:   13,
	}

	if cover.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cover.Size())
	}
	if l, ok := cover.LevelOf(0); !ok || l != 1 {
		t.Errorf("LevelOf(P0) = (%s, %v), want (L1, true)", l, ok)
	}
	if cover.Contains(1) {
		t.Error("Contains(P1) = true, want false")
	}
	if got, want := cover.String(), "F0{P0:L1, P2:L0} weight=13"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestProductionPlan_Set(t *testing.T) {
	inst, err := NewInstance(twoLevelData())
	if err != nil {
		t.Fatalf("NewInstance() error = %v", err)
	}
	plan := NewProductionPlan(inst)
	if plan.Level(0, 0) != -1 {
		t.Errorf("new plan Level() = %s, want -1", plan.Level(0, 0))
	}
	if err := plan.Set(0, 0, 1, 7.5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if plan.Level(0, 0) != 1 || plan.Quantity(0, 0) != 7.5 {
		t.Errorf("plan = (%s, %g), want (L1, 7.5)", plan.Level(0, 0), plan.Quantity(0, 0))
	}
	if err := plan.Set(0, 3, 0, 1); err == nil {
		t.Error("Set() with unknown facility should fail")
	}
	if err := plan.Set(0, 0, 0, -1); err == nil {
		t.Error("Set() with negative quantity should fail")
	}
}
