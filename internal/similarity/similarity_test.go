package similarity

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "orders", "orders", 1},
		{"both empty", "", "", 1},
		{"one empty", "orders", "", 0},
		{"disjoint", "abc", "xyz", 0},
		{"one extra rune", "get_usr", "get_user", 14.0 / 15.0},
		{"plural", "a_user", "a_users", 12.0 / 13.0},
		{"split blocks", "get_usr", "delete_user", 12.0 / 18.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Ratio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatioIsSymmetricForSimpleCases(t *testing.T) {
	pairs := [][2]string{{"modelId", "model_id"}, {"users", "user"}, {"status", "state"}}
	for _, p := range pairs {
		if a, b := Ratio(p[0], p[1]), Ratio(p[1], p[0]); math.Abs(a-b) > 1e-9 {
			t.Errorf("Ratio(%q,%q)=%v but reversed=%v", p[0], p[1], a, b)
		}
	}
}

func TestSuggestOrdersByScore(t *testing.T) {
	got := Suggest("get_usr", []string{"delete_user", "get_users", "get_user"}, DefaultThreshold, 0)
	if len(got) < 2 {
		t.Fatalf("Suggest returned %d matches, want at least 2", len(got))
	}
	if got[0].Candidate != "get_user" || got[1].Candidate != "get_users" {
		t.Errorf("top matches = %v, want [get_user get_users ...]", Names(got))
	}
	for _, m := range got {
		if m.Score < DefaultThreshold {
			t.Errorf("match %q has score %v below threshold", m.Candidate, m.Score)
		}
	}
}

func TestSuggestThresholdAndLimit(t *testing.T) {
	candidates := []string{"orders", "order_items", "customers", "zzz"}

	got := Suggest("order", candidates, 0.6, 0)
	for _, m := range got {
		if m.Candidate == "zzz" || m.Candidate == "customers" {
			t.Errorf("unexpected low-similarity match %q (%v)", m.Candidate, m.Score)
		}
	}

	limited := Suggest("order", candidates, 0, 1)
	if len(limited) != 1 || limited[0].Candidate != "orders" {
		t.Errorf("Suggest with limit 1 = %v, want [orders]", Names(limited))
	}
}

func TestSuggestTieBreaksLexically(t *testing.T) {
	got := Suggest("ab", []string{"ax", "ab_", "aby", "xb"}, 0, 0)
	// "ab_" and "aby" both score 0.8; "ax" and "xb" both score 0.5.
	want := []string{"ab_", "aby", "ax", "xb"}
	names := Names(got)
	if len(names) != len(want) {
		t.Fatalf("Suggest() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Suggest() = %v, want %v", names, want)
		}
	}
}

func TestSuggestIsDeterministic(t *testing.T) {
	candidates := []string{"users", "user_roles", "roles", "a_users", "user"}
	first := Names(Suggest("usr", candidates, 0.3, 0))
	for i := 0; i < 10; i++ {
		again := Names(Suggest("usr", candidates, 0.3, 0))
		if len(again) != len(first) {
			t.Fatalf("run %d returned %v, want %v", i, again, first)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d returned %v, want %v", i, again, first)
			}
		}
	}
}
