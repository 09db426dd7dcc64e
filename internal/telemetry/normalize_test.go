package telemetry

import (
	"encoding/json"
	"testing"
)

func rowsJSON(t *testing.T, raw string) (string, Shape) {
	t.Helper()

	rows, shape := NormalizeRows(json.RawMessage(raw))
	out, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal rows: %v", err)
	}
	return string(out), shape
}

func TestNormalizeRows(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		shape Shape
	}{
		{name: "absent", in: ``, want: `[]`, shape: ShapeEmpty},
		{name: "null", in: `null`, want: `[]`, shape: ShapeEmpty},
		{name: "empty object", in: `{}`, want: `[]`, shape: ShapeUnknown},
		{name: "bare array", in: `[{"a":1},2,"x"]`, want: `[{"a":1},2,"x"]`, shape: ShapeArray},
		{name: "uplinks", in: `{"uplinks":[{"a":1}]}`, want: `[{"a":1}]`, shape: ShapeUplinks},
		{name: "data", in: `{"data":[{"b":2}]}`, want: `[{"b":2}]`, shape: ShapeData},
		{name: "uplinks before data", in: `{"uplinks":[{"a":1}],"data":[{"b":2}]}`, want: `[{"a":1}]`, shape: ShapeUplinks},
		{name: "data not an array", in: `{"data":{"dev_eui":"x"}}`, want: `[]`, shape: ShapeUnknown},
		{name: "single by dev_eui", in: `{"dev_eui":"x"}`, want: `[{"dev_eui":"x"}]`, shape: ShapeSingle},
		{name: "single by device_name", in: `{"device_name":"n"}`, want: `[{"device_name":"n"}]`, shape: ShapeSingle},
		{name: "single by data_text", in: `{"data_text":"t"}`, want: `[{"data_text":"t"}]`, shape: ShapeSingle},
		{name: "single with empty dev_eui", in: `{"dev_eui":""}`, want: `[]`, shape: ShapeUnknown},
		{name: "uplinks not an array falls through", in: `{"uplinks":{},"data":[{"b":2}]}`, want: `[{"b":2}]`, shape: ShapeData},
		{name: "scalar", in: `"text"`, want: `[]`, shape: ShapeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, shape := rowsJSON(t, tt.in)
			if got != tt.want {
				t.Fatalf("NormalizeRows(%s) = %s, want %s", tt.in, got, tt.want)
			}
			if shape != tt.shape {
				t.Fatalf("NormalizeRows(%s) shape = %q, want %q", tt.in, shape, tt.shape)
			}
		})
	}
}

func TestDecodeDeviceIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: `["aa:bb","cc"]`, want: []string{"aa:bb", "cc"}},
		{in: `{"devices":["aa","aa"," bb "]}`, want: []string{"aa", "bb"}},
		{in: `{"data":[{"dev_eui":"x"},{"devEUI":"y"},{"id":7},{}]}`, want: []string{"x", "y", "7"}},
		{in: `{"nothing":true}`, want: []string{}},
		{in: `[]`, want: []string{}},
	}

	for _, tt := range tests {
		got := decodeDeviceIDs(json.RawMessage(tt.in))
		if len(got) != len(tt.want) {
			t.Fatalf("decodeDeviceIDs(%s) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("decodeDeviceIDs(%s) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestDecodeDetail(t *testing.T) {
	if decodeDetail(json.RawMessage(`null`)) != nil {
		t.Fatalf("expected nil detail for null")
	}
	if decodeDetail(json.RawMessage(`[1,2]`)) != nil {
		t.Fatalf("expected nil detail for array without objects")
	}

	d := decodeDetail(json.RawMessage(`[{"dev_eui":"a"}]`))
	if d == nil || d.Fields().FirstString("dev_eui") != "a" {
		t.Fatalf("expected first object of array")
	}

	d = decodeDetail(json.RawMessage(`{"uplink":{"dev_eui":"b"}}`))
	if d == nil || d.Fields().FirstString("dev_eui") != "b" {
		t.Fatalf("expected wrapped uplink object")
	}

	d = decodeDetail(json.RawMessage(`{"dev_eui":"c","ts":"2025-01-01T00:00:00Z"}`))
	if d == nil || d.Fields().FirstString("dev_eui") != "c" {
		t.Fatalf("expected plain object")
	}
}
