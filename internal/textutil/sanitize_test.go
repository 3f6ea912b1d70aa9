package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Inception", "Inception"},
		{"What/If: A Story?", "What-If- A Story"},
		{`AC\DC: Live*`, "AC-DC- Live-"},
		{`"Quoted" <Title> | Pipe`, "Quoted Title  Pipe"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
