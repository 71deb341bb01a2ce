package orchestrator

import "testing"

func TestResolve_KeywordMatch(t *testing.T) {
	r := NewRouter(DefaultRules, DefaultFallback)

	cases := []struct {
		task string
		want string
	}{
		{"review the pull request", "reviewer"},
		{"audit the payment module", "reviewer"},
		{"add regression tests for the parser", "tester"},
		{"update the README with install steps", "documenter"},
		{"investigate why startup is slow", "researcher"},
	}
	for _, tc := range cases {
		got := r.Resolve(tc.task)
		if got.Handler != tc.want {
			t.Errorf("Resolve(%q) = %s, want %s", tc.task, got.Handler, tc.want)
		}
		if got.MatchedKeyword == "" {
			t.Errorf("Resolve(%q) matched no keyword", tc.task)
		}
	}
}

func TestResolve_FallbackForUnmatched(t *testing.T) {
	r := NewRouter(DefaultRules, DefaultFallback)

	got := r.Resolve("implement OAuth login")
	if got.Handler != "coder" {
		t.Errorf("handler = %s, want coder", got.Handler)
	}
	if got.MatchedKeyword != "" {
		t.Errorf("fallback decision has matched keyword %q", got.MatchedKeyword)
	}
}

func TestResolve_FirstRuleWins(t *testing.T) {
	r := NewRouter(DefaultRules, DefaultFallback)

	// Contains both a reviewer keyword and a documenter keyword; the
	// reviewer rule sits earlier in the table.
	got := r.Resolve("review the docs changes")
	if got.Handler != "reviewer" {
		t.Errorf("handler = %s, want reviewer (first matching rule)", got.Handler)
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := NewRouter(DefaultRules, DefaultFallback)

	if got := r.Resolve("REVIEW this patch"); got.Handler != "reviewer" {
		t.Errorf("handler = %s, want reviewer", got.Handler)
	}
}
