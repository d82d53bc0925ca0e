package payload

import (
	"testing"
)

func TestParseLenient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		isObject bool
	}{
		{name: "object", input: `{"a":1}`, isObject: true},
		{name: "array", input: `[1,2]`, isObject: false},
		{name: "html error page", input: `<html>502</html>`, isObject: false},
		{name: "truncated", input: `{"a":`, isObject: false},
		{name: "empty", input: ``, isObject: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := ParseObject([]byte(tt.input))
			if (obj != nil) != tt.isObject {
				t.Errorf("ParseObject(%q) object = %v, want %v", tt.input, obj != nil, tt.isObject)
			}
		})
	}
}

func TestParseKeepsNumberLiterals(t *testing.T) {
	obj := ParseObject([]byte(`{"price_kopeks":1350,"nested":{"list":[1,"x",null,true]}}`))
	if obj == nil {
		t.Fatal("expected object")
	}

	if got, ok := obj.Get("price_kopeks").(Number); !ok || got != "1350" {
		t.Fatalf("price_kopeks = %#v, want Number(1350)", obj.Get("price_kopeks"))
	}

	list := AsList(obj.Obj("nested").Get("list"))
	if len(list) != 4 {
		t.Fatalf("list length = %d, want 4", len(list))
	}
	if list[2] != nil {
		t.Errorf("list[2] = %#v, want nil", list[2])
	}
	if list[3] != true {
		t.Errorf("list[3] = %#v, want true", list[3])
	}
}

func TestPositiveInt(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
		ok    bool
	}{
		{name: "number literal", input: Number("1000"), want: 1000, ok: true},
		{name: "fraction truncated", input: Number("12.7"), want: 12, ok: true},
		{name: "numeric string", input: "42", want: 42, ok: true},
		{name: "leading digits", input: "30days", want: 30, ok: true},
		{name: "zero", input: 0, want: 0, ok: true},
		{name: "negative", input: Number("-5"), ok: false},
		{name: "text", input: "abc", ok: false},
		{name: "bool", input: true, ok: false},
		{name: "nil", input: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PositiveInt(tt.input)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("PositiveInt(%#v) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBool(t *testing.T) {
	tests := []struct {
		input    any
		fallback bool
		want     bool
	}{
		{input: true, fallback: false, want: true},
		{input: "TRUE", fallback: false, want: true},
		{input: Number("1"), fallback: false, want: true},
		{input: "0", fallback: true, want: false},
		{input: "yes", fallback: true, want: true},
		{input: nil, fallback: false, want: false},
	}

	for _, tt := range tests {
		if got := Bool(tt.input, tt.fallback); got != tt.want {
			t.Errorf("Bool(%#v, %v) = %v, want %v", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestObjectLookupOrder(t *testing.T) {
	obj := Object{
		"id":        nil,
		"period_id": Number("0"),
		"code":      "m1",
		"label":     "",
		"title":     "Month",
	}

	if got := String(obj.Coalesce("id", "period_id", "code")); got != "0" {
		t.Errorf("Coalesce skipped a present zero: got %q", got)
	}
	if got := obj.FirstString("id", "period_id", "code"); got != "m1" {
		t.Errorf("First should skip falsy values: got %q", got)
	}
	if got := obj.FirstString("label", "title"); got != "Month" {
		t.Errorf("First should skip empty strings: got %q", got)
	}
}

func TestMergeOverridesShallowly(t *testing.T) {
	base := Object{"min": Number("1"), "options": []any{"a"}}
	override := Object{"options": []any{"b", "c"}}

	merged := Merge(base, override)
	if len(AsList(merged.Get("options"))) != 2 {
		t.Errorf("override options not applied: %#v", merged.Get("options"))
	}
	if merged.Get("min") != Number("1") {
		t.Errorf("base field lost: %#v", merged.Get("min"))
	}
	if len(AsList(base.Get("options"))) != 1 {
		t.Error("base mutated by Merge")
	}
}

func TestEncodeSortsKeys(t *testing.T) {
	got := string(Encode(Object{
		"b":     Number("2"),
		"a":     []string{"x"},
		"c":     nil,
		"d":     true,
		"e":     int64(7),
		"inner": map[string]any{"z": "y"},
	}))
	want := `{"a":["x"],"b":2,"c":null,"d":true,"e":7,"inner":{"z":"y"}}`
	if got != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}
