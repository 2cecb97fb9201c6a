package visit

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ravi Kumar", "RAVIKUMAR"},
		{"  john-smith_42!", "JOHNSMITH42"},
		{"Jiří Novák", "JIRINOVAK"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"label with colon", "Name: Ravi Kumar", "RAVI", true},
		{"lowercase label", "UNITED ARAB EMIRATES name ravi", "RAVI", true},
		{"label with dash", "NAME - Johnsmithxyz Doe", "JOHNSMITHXYZ", true},
		{"label glued to value", "Name:Anna", "ANNA", true},
		{"diacritics", "Name: Jiří", "JIRI", true},
		{"no label", "DXB 1234 RESIDENT", "", false},
		{"label without value", "Name:", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractName(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractName(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMatchKey(t *testing.T) {
	if got := MatchKey("JOHNSMITHXYZABC"); got != "JOHNSMITHX" {
		t.Errorf("MatchKey = %q", got)
	}
	if got := MatchKey("RAVI"); got != "RAVI" {
		t.Errorf("short names are their own key, got %q", got)
	}
}

func TestSameVisitor(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"JOHNSMITHXYZ", "JOHNSMITHXAB", true},
		{"JOHNSMITHXYZ", "JOHNSMITHYY", false},
		{"RAVI", "RAVI", true},
		{"RAVI", "RAVIKUMAR", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := SameVisitor(tt.a, tt.b); got != tt.want {
			t.Errorf("SameVisitor(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// Only the first word after the label is compared, so visitors sharing a
// first name are treated as the same person.
func TestSameVisitorFirstWordOnly(t *testing.T) {
	a, okA := ExtractName("Name: John Smith")
	b, okB := ExtractName("Name: John Doe")
	if !okA || !okB {
		t.Fatalf("expected both names to be extracted, got %q %v, %q %v", a, okA, b, okB)
	}
	if !SameVisitor(a, b) {
		t.Errorf("SameVisitor(%q, %q) = false, want true for a shared first word", a, b)
	}
}
