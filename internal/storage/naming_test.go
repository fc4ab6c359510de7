package storage

import "testing"

func TestSanitize_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase_passthrough", in: "football", want: "football"},
		{name: "uppercase_lowered", in: "Football", want: "football"},
		{name: "digits_kept", in: "2023", want: "2023"},
		{name: "space_replaced", in: "2023 Prizm", want: "2023_prizm"},
		{name: "punctuation_replaced", in: "Topps/Chrome!", want: "topps_chrome_"},
		{name: "non_ascii_replaced", in: "fútbol", want: "f_tbol"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStoreName(t *testing.T) {
	t.Parallel()

	if got, want := StoreName("Football", "2023 Prizm"), "football_2023_prizm"; got != want {
		t.Fatalf("StoreName = %q, want %q", got, want)
	}
	if got, want := SportPrefix("Football"), "football_"; got != want {
		t.Fatalf("SportPrefix = %q, want %q", got, want)
	}
}
