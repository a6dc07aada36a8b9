package models

import "testing"

func TestParseMilestoneName(t *testing.T) {
	for _, in := range []string{"foundation", "Roofing", " PLUMBING "} {
		if _, err := ParseMilestoneName(in); err != nil {
			t.Errorf("ParseMilestoneName(%q): %v", in, err)
		}
	}
	if name, err := ParseMilestoneName("Painting"); err != nil || name != MilestonePainting {
		t.Errorf("ParseMilestoneName(Painting) = %q, %v", name, err)
	}
	if _, err := ParseMilestoneName("electrical"); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestParseMilestoneStatus(t *testing.T) {
	if st, err := ParseMilestoneStatus("Ongoing"); err != nil || st != MilestoneOngoing {
		t.Errorf("ParseMilestoneStatus(Ongoing) = %q, %v", st, err)
	}
	if _, err := ParseMilestoneStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	}
}
