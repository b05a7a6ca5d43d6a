package schedule

import "testing"

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		set  string
		want bool
	}{
		{"0 0 * * *", true},
		{"0 0 * * *,0 8 * * *", true},
		{"0 0 * * *, 0 8 * * *", true},
		{"*/5 * * * *", false},
		{"0 0 * * *,0 13 * * *", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsAllowed(tc.set); got != tc.want {
			t.Fatalf("IsAllowed(%q) = %v, want %v", tc.set, got, tc.want)
		}
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	set := "0 2 * * *, 0 8 * * *"
	if !Contains(set, "0 2 * * *") {
		t.Fatalf("expected membership for first element")
	}
	if !Contains(set, "0 8 * * *") {
		t.Fatalf("expected membership for trimmed second element")
	}
	if Contains(set, "0 3 * * *") {
		t.Fatalf("unexpected membership")
	}
	// Literal comparison only: a superstring must not match.
	if Contains("0 10 * * *", "0 1 * * *") {
		t.Fatalf("substring must not count as membership")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got := Normalize(" 0 0 * * *,0 8 * * *, 0 0 * * *,,")
	want := "0 0 * * *,0 8 * * *"
	if got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}
