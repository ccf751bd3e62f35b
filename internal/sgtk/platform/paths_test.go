package platform

import "testing"

func TestSanitize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"/studio/projects/", "/studio/projects"},
		{"/studio//projects///shots", "/studio/projects/shots"},
		{"//mnt/projects", "/mnt/projects"},
		{"/", "/"},
		{`C:\`, `C:\`},
		{`C:\projects\`, `C:\projects`},
		{`C:\\projects\\\shots`, `C:\projects\shots`},
		{`\\server\share\`, `\\server\share`},
		{`\\server\\share`, `\\server\share`},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeIsPure(t *testing.T) {
	t.Parallel()
	// Sanitizing a sanitized path is a no-op.
	inputs := []string{"/studio//projects/", `C:\projects\\shots\`, `\\server\share//x`}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Fatalf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestPathTripleCurrent(t *testing.T) {
	t.Parallel()
	triple := PathTriple{
		Windows: `P:\projects`,
		Mac:     "/Volumes/projects",
		Linux:   "/mnt/projects",
	}
	if got := triple.Current(); got == "" {
		t.Fatal("Current must return the running platform's entry")
	}
}

func TestPathTripleSanitized(t *testing.T) {
	t.Parallel()
	triple := PathTriple{
		Windows: `P:\projects\`,
		Mac:     "/Volumes//projects/",
		Linux:   "/mnt/projects//",
	}
	got := triple.Sanitized()
	if got.Windows != `P:\projects` || got.Mac != "/Volumes/projects" || got.Linux != "/mnt/projects" {
		t.Fatalf("Sanitized = %+v", got)
	}
}
