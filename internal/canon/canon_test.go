package canon

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func TestMarshalSortsKeys(t *testing.T) {
	v := map[string]interface{}{"b": 1, "a": 2}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"a":2,"b":1}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMarshalNoWhitespace(t *testing.T) {
	v := map[string]interface{}{"x": []interface{}{1, 2, 3}}
	got, err := Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"x":[1,2,3]}`
	if string(got) != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMarshalStructDeterministic(t *testing.T) {
	type inner struct {
		Z int    `json:"z"`
		A string `json:"a"`
	}
	a, err := MarshalStruct(inner{Z: 1, A: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := MarshalStruct(inner{Z: 1, A: "x"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("non-deterministic: %s vs %s", a, b)
	}
	if string(a) != `{"a":"x","z":1}` {
		t.Fatalf("got %s", a)
	}
}

func TestMarshalRejectsNaN(t *testing.T) {
	v := map[string]interface{}{"x": nan()}
	if _, err := Marshal(v); err == nil {
		t.Fatal("expected error for NaN")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestMarshalNFCNormalizesStrings(t *testing.T) {
	// "e" + combining acute (NFD) should canonicalize to the same bytes as
	// the precomposed "é" (NFC).
	nfd := "é"
	nfc := "é"
	a, err := Marshal(nfd)
	if err != nil {
		t.Fatalf("marshal nfd: %v", err)
	}
	b, err := Marshal(nfc)
	if err != nil {
		t.Fatalf("marshal nfc: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("NFC mismatch: %s vs %s", a, b)
	}
}

func TestMarshalRoundTripIsIdentityOnValueSet(t *testing.T) {
	v := map[string]interface{}{
		"a": []interface{}{"one", json.Number("2"), true, nil},
		"b": map[string]interface{}{"nested": "value"},
	}
	encoded, err := Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	reencoded, err := Marshal(decoded)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if string(encoded) != string(reencoded) {
		t.Fatalf("not idempotent: %s vs %s", encoded, reencoded)
	}
}
