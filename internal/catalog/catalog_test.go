package catalog

import "testing"

func TestDefault(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.Len() != 17 {
		t.Errorf("expected 17 commands, got %d", c.Len())
	}
	if Default() != c {
		t.Error("Default() should return the same catalog on every call")
	}
}

func TestCatalog_Lookup(t *testing.T) {
	tests := []struct {
		name  string
		cost  float64
		time  float64
		group Group
	}{
		{IsolateNetwork, 15.0, 2.0, GroupNetwork},
		{IsolateHost, 10.0, 1.0, GroupEndpoint},
		{ScanForMalware, 3.0, 5.0, GroupEndpoint},
		{EnforceMFA, 8.0, 3.0, GroupIAM},
		{EnableDLP, 6.0, 2.5, GroupDataProtection},
		{CaptureMemoryDump, 7.0, 4.0, GroupForensics},
		{AnalyzeNetworkTraffic, 2.0, 2.0, GroupInvestigation},
	}
	c := Default()
	for _, tt := range tests {
		d, ok := c.Lookup(tt.name)
		if !ok {
			t.Errorf("Lookup(%q): not found", tt.name)
			continue
		}
		if d.Cost != tt.cost || d.Time != tt.time || d.Group != tt.group {
			t.Errorf("Lookup(%q) = cost %v time %v group %q", tt.name, d.Cost, d.Time, d.Group)
		}
	}
	if _, ok := c.Lookup("format_disk"); ok {
		t.Error("Lookup(format_disk) should fail")
	}
}

func TestCatalog_ListIsCopy(t *testing.T) {
	c := Default()
	list := c.List()
	list[0].Cost = 999
	if d, _ := c.Lookup(list[0].Name); d.Cost == 999 {
		t.Error("mutating List() result changed the catalog")
	}
	if again := c.List(); again[0].Cost == 999 {
		t.Error("List() returned shared storage")
	}
}

func TestNew_FirstDefinitionWins(t *testing.T) {
	c := New([]Definition{
		{Name: "a", Cost: 1},
		{Name: "a", Cost: 2},
		{Name: "b", Cost: 3},
	})
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if d, _ := c.Lookup("a"); d.Cost != 1 {
		t.Errorf("a.Cost = %v, want 1", d.Cost)
	}
}
