package perf

import (
	"encoding/json"
	"testing"
)

func TestMetric_States(t *testing.T) {
	m := Defined(1.5)
	if !m.IsDefined() || m.IsUndefined() || m.IsInfinite() {
		t.Error("Defined(1.5) should report only IsDefined")
	}
	if v, ok := m.Value(); !ok || v != 1.5 {
		t.Errorf("Value() = %v, %v, want 1.5, true", v, ok)
	}

	u := Undefined()
	if u.IsDefined() || !u.IsUndefined() {
		t.Error("Undefined() should report IsUndefined")
	}
	if _, ok := u.Value(); ok {
		t.Error("Undefined().Value() should report ok=false")
	}

	inf := Infinite()
	if inf.IsDefined() || !inf.IsInfinite() {
		t.Error("Infinite() should report IsInfinite")
	}
	if _, ok := inf.Value(); ok {
		t.Error("Infinite().Value() should report ok=false")
	}
}

func TestMetric_Or(t *testing.T) {
	if got := Defined(2.0).Or(9); got != 2.0 {
		t.Errorf("Defined(2).Or(9) = %f, want 2", got)
	}
	if got := Undefined().Or(9); got != 9 {
		t.Errorf("Undefined().Or(9) = %f, want 9", got)
	}
	if got := Infinite().Or(9); got != 9 {
		t.Errorf("Infinite().Or(9) = %f, want 9", got)
	}
}

func TestMetric_Format(t *testing.T) {
	tests := []struct {
		m        Metric
		decimals int
		want     string
	}{
		{Defined(0.13636), 4, "0.1364"},
		{Defined(2.6666666), 2, "2.67"},
		{Undefined(), 2, "n/a"},
		{Infinite(), 2, "inf"},
	}
	for _, tt := range tests {
		if got := tt.m.Format(tt.decimals); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.decimals, got, tt.want)
		}
	}
}

func TestMetric_JSON(t *testing.T) {
	tests := []struct {
		name string
		m    Metric
		want string
	}{
		{"defined", Defined(0.5), "0.5"},
		{"undefined", Undefined(), "null"},
		{"infinite", Infinite(), `"inf"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.m)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var back Metric
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", data, err)
			}
			if back != tt.m {
				t.Errorf("round trip = %+v, want %+v", back, tt.m)
			}
		})
	}
}

func TestMetric_UnmarshalInfinityVariants(t *testing.T) {
	for _, raw := range []string{`"inf"`, `"+inf"`, `"Infinity"`} {
		var m Metric
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		if !m.IsInfinite() {
			t.Errorf("Unmarshal(%s) should yield the infinite sentinel", raw)
		}
	}
}

func TestMetric_UnmarshalRejectsGarbage(t *testing.T) {
	var m Metric
	if err := json.Unmarshal([]byte(`"banana"`), &m); err == nil {
		t.Error("expected error for unknown string value")
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(6, 3); !got.IsDefined() || got.Or(0) != 2 {
		t.Errorf("ratio(6, 3) = %+v, want Defined(2)", got)
	}
	if got := ratio(6, 0); !got.IsUndefined() {
		t.Errorf("ratio(6, 0) = %+v, want Undefined", got)
	}
}
