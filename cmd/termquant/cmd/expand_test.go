package cmd

import "testing"

func TestIgnoredRankFlags(t *testing.T) {
	tests := []struct {
		name          string
		mode          string
		targetRank    string
		policyChanged bool
		wantWarning   bool
	}{
		{"fn with target rank", "fn", "genus", false, true},
		{"fn with rank policy", "fn", "", true, true},
		{"fn without rank flags", "fn", "", false, false},
		{"tax with target rank", "tax", "genus", false, false},
		{"taxfn with target rank", "taxfn", "genus", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ignoredRankFlags(tt.mode, tt.targetRank, tt.policyChanged)
			if (msg != "") != tt.wantWarning {
				t.Errorf("ignoredRankFlags(%s, %q, %v) = %q, want warning=%v",
					tt.mode, tt.targetRank, tt.policyChanged, msg, tt.wantWarning)
			}
		})
	}
}
