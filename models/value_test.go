package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestValueUnmarshalShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind Kind
	}{
		{name: "string scalar", data: `"hello"`, kind: KindScalar},
		{name: "number scalar", data: `2020`, kind: KindScalar},
		{name: "bool scalar", data: `true`, kind: KindScalar},
		{name: "list", data: `["a","b"]`, kind: KindList},
		{name: "null", data: `null`, kind: KindAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.data), &v); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.data, err)
			}
			if v.Kind() != tt.kind {
				t.Fatalf("kind = %d, want %d", v.Kind(), tt.kind)
			}
		})
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	tests := []string{
		`"Jane Doe"`,
		`2020`,
		`true`,
		`["C","D"]`,
		`null`,
		`[1,2,3]`,
	}

	for _, data := range tests {
		t.Run(data, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(data), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			out, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != data {
				t.Fatalf("round trip = %s, want %s", out, data)
			}
		})
	}
}

func TestValueDisplay(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{name: "string", value: String("The Title"), want: "The Title"},
		{name: "integral number", value: Number(2020), want: "2020"},
		{name: "fractional number", value: Number(3.5), want: "3.5"},
		{name: "list joined", value: List("A", "B"), want: "A, B"},
		{name: "absent empty", value: Absent, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Display(); got != tt.want {
				t.Fatalf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueStrings(t *testing.T) {
	if got := List("A", "B").Strings(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("list Strings() = %v", got)
	}
	if got := String("A").Strings(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("scalar Strings() = %v", got)
	}
	if got := Absent.Strings(); got != nil {
		t.Fatalf("absent Strings() = %v, want nil", got)
	}
}

func TestRecordFieldsUnmarshal(t *testing.T) {
	data := `{"id":"rec1","fields":{"Title":"A Story","Year":2019,"Author":["X","Y"],"Note":null}}`

	var raw RawRecord
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatalf("unmarshal raw record: %v", err)
	}
	if raw.ID != "rec1" {
		t.Fatalf("id = %q", raw.ID)
	}
	if got := raw.Fields["Year"].Display(); got != "2019" {
		t.Fatalf("year = %q", got)
	}
	if raw.Fields["Note"].Kind() != KindAbsent {
		t.Fatalf("null field should be absent")
	}
	if raw.Fields["Author"].Kind() != KindList {
		t.Fatalf("author should be a list")
	}
}
