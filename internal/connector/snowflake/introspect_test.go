package snowflake

import "testing"

func TestParseSignature(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		wantNames []string
		wantTypes []string
	}{
		{"empty", "()", nil, nil},
		{"blank", "", nil, nil},
		{"single", "(ID NUMBER)", []string{"ID"}, []string{"NUMBER"}},
		{
			name:      "nested commas",
			signature: "(AMOUNT NUMBER(10,2), LABEL VARCHAR)",
			wantNames: []string{"AMOUNT", "LABEL"},
			wantTypes: []string{"NUMBER(10,2)", "VARCHAR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := parseSignature("P", tt.signature)
			if len(rows) != len(tt.wantNames) {
				t.Fatalf("got %d params, want %d", len(rows), len(tt.wantNames))
			}
			for i, r := range rows {
				if r.RoutineName != "P" {
					t.Errorf("params[%d].RoutineName = %q", i, r.RoutineName)
				}
				if r.Name == nil || *r.Name != tt.wantNames[i] {
					t.Errorf("params[%d].Name = %v, want %q", i, r.Name, tt.wantNames[i])
				}
				if r.DataType != tt.wantTypes[i] {
					t.Errorf("params[%d].DataType = %q, want %q", i, r.DataType, tt.wantTypes[i])
				}
				if r.Position != i+1 {
					t.Errorf("params[%d].Position = %d", i, r.Position)
				}
			}
		})
	}
}
