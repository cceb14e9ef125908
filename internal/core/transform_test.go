package core

import "testing"

func TestCleanGeneralText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		preserve bool
		want     string
	}{
		{name: "plain text unchanged", input: "SAN ISIDRO", preserve: false, want: "SAN ISIDRO"},
		{name: "strips special characters", input: "Pob. (Zone 2)#", preserve: false, want: "Pob. Zone 2"},
		{name: "folds diacritics", input: "Peñaranda", preserve: false, want: "Penaranda"},
		{name: "collapses space runs", input: "A   B", preserve: false, want: "A B"},
		{name: "single tab normalized when not preserving", input: "A\tB", preserve: false, want: "A B"},
		{name: "single tab kept when preserving", input: "A\tB", preserve: true, want: "A\tB"},
		{name: "slash stripped from placeholder", input: "n/a", preserve: false, want: "na"},
		{name: "whitespace only becomes empty", input: "   ", preserve: false, want: ""},
		{name: "empty stays empty", input: "", preserve: false, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanGeneralText(tt.input, tt.preserve)
			if got != tt.want {
				t.Errorf("CleanGeneralText(%q, %v) = %q, want %q", tt.input, tt.preserve, got, tt.want)
			}
			// Running the transform on its own output must be a no-op.
			if again := CleanGeneralText(got, tt.preserve); again != got {
				t.Errorf("not idempotent: second pass %q != first pass %q", again, got)
			}
		})
	}
}

func TestCleanNameText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain name unchanged", input: "JUAN", want: "JUAN"},
		{name: "hyphen kept", input: "MARIA-CLARA", want: "MARIA-CLARA"},
		{name: "digits removed", input: "JU4N", want: "JUN"},
		{name: "enye folded", input: "NIÑO", want: "NINO"},
		{name: "punctuation removed", input: "O'BRIEN JR.", want: "OBRIEN JR"},
		{name: "slash stripped but token kept", input: "N/A", want: "NA"},
		{name: "spaces collapsed and trimmed", input: "  DELA   CRUZ  ", want: "DELA CRUZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanNameText(tt.input)
			if got != tt.want {
				t.Errorf("CleanNameText(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := CleanNameText(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCleanMotherMaidenName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DELA CRUZ", "DELA CRUZ"},
		{"STA. MARIA", "STA MARIA"},
		{"O'CAMPO", "O'CAMPO"},
		{"PEÑA", "PENA"},
		{"N/A", ""},
	}

	for _, tt := range tests {
		got := CleanMotherMaidenName(tt.input)
		if got != tt.want {
			t.Errorf("CleanMotherMaidenName(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := CleanMotherMaidenName(got); again != got {
			t.Errorf("not idempotent for %q: %q -> %q", tt.input, got, again)
		}
	}
}

func TestCleanExtensionName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Jr.", "JR"},
		{"SR.", "SR"},
		{"iii", "III"},
		{" J r. ", "JR"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanExtensionName(tt.input); got != tt.want {
			t.Errorf("CleanExtensionName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatMobile(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ten digits unchanged", input: "9171234567", want: "9171234567"},
		{name: "eleven digits with leading zero", input: "09171234567", want: "9171234567"},
		{name: "strips formatting characters", input: "0917-123-4567", want: "9171234567"},
		{name: "strips spaces", input: "0917 123 4567", want: "9171234567"},
		{name: "short number kept as digits", input: "12345", want: "12345"},
		{name: "empty stays empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMobile(tt.input)
			if got != tt.want {
				t.Errorf("FormatMobile(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := FormatMobile(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestFormatGender(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"M", "MALE"},
		{"m", "MALE"},
		{"male", "MALE"},
		{"F", "FEMALE"},
		{"female", "FEMALE"},
		{"FEMALE", "FEMALE"},
		{"X", "X"},
		{"", ""},
	}

	for _, tt := range tests {
		got := FormatGender(tt.input)
		if got != tt.want {
			t.Errorf("FormatGender(%q) = %q, want %q", tt.input, got, tt.want)
		}
		if again := FormatGender(got); again != got {
			t.Errorf("not idempotent for %q: %q -> %q", tt.input, got, again)
		}
	}
}

func TestFormatRegion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"REGION III", "REGION III CENTRAL LUZON"},
		{"REGION IV-A (CALABARZON)", "REGION IV-A CALABARZON"},
		{"BARMM", "BARMM BANGSAMORO AUTONOMOUS REGION IN MUSLIM MINDANAO"},
		{"CAR", "CAR CORDILLERA ADMINISTRATIVE REGION"},
		{"NCR", "NCR NATIONAL CAPITAL REGION"},
		{"UNKNOWN PLACE", "UNKNOWN PLACE"},
		{"", ""},
	}

	for _, tt := range tests {
		got := FormatRegion(tt.input)
		if got != tt.want {
			t.Errorf("FormatRegion(%q) = %q, want %q", tt.input, got, tt.want)
		}
		// Long names are not shorthand keys, so a second pass is stable.
		if again := FormatRegion(got); again != got {
			t.Errorf("not idempotent for %q: %q -> %q", tt.input, got, again)
		}
	}
}
