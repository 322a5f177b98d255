// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type storedRow struct {
	Number    uint64    `cbor:"number"`
	Name      string    `cbor:"name"`
	Items     []string  `cbor:"items,omitempty"`
	Timestamp time.Time `cbor:"timestamp"`
}

func TestRoundtrip(t *testing.T) {
	original := storedRow{
		Number:    7,
		Name:      "block",
		Items:     []string{"a", "b"},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
	}
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded storedRow
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Number != original.Number || decoded.Name != original.Name ||
		strings.Join(decoded.Items, ",") != "a,b" || !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("decoded %+v, want %+v", decoded, original)
	}
}

func TestDeterministicMapOrder(t *testing.T) {
	first := map[string]any{"zeta": 1, "alpha": 2, "mid": []any{"x"}}
	second := map[string]any{"mid": []any{"x"}, "alpha": 2, "zeta": 1}
	for i := 0; i < 20; i++ {
		a, err := Marshal(first)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Marshal(second)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Fatal("equal maps encoded differently")
		}
	}
}

func TestDecodeAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"slot": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := outer["slot"].(map[string]any); !ok {
		t.Fatalf("nested value %T, want map[string]any", outer["slot"])
	}
}

func TestTimeAsText(t *testing.T) {
	data, err := Marshal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatal(err)
	}
	if notation != `"2026-01-02T03:04:05Z"` {
		t.Errorf("Diagnose = %s", notation)
	}
}

func TestRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	data := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err == nil {
		t.Errorf("duplicate key accepted: %v", decoded)
	}
}
