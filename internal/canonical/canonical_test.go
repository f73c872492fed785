package canonical

import (
	"errors"
	"strings"
	"testing"
)

func TestMarshalSortsKeys(t *testing.T) {
	got, err := Marshal(map[string]interface{}{
		"zebra":  "z",
		"apple":  1,
		"mango":  true,
		"banana": map[string]interface{}{"y": 2, "x": 1},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := `{"apple":1,"banana":{"x":1,"y":2},"mango":true,"zebra":"z"}`
	if string(got) != want {
		t.Errorf("canonical bytes mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestMarshalOrderIndependent(t *testing.T) {
	// Build the same payload twice with different insertion orders,
	// including a nested map.
	a := map[string]interface{}{}
	a["deviceId"] = "dev-1"
	a["passes"] = 3
	a["details"] = map[string]interface{}{"status": "success", "algorithm": "dod"}

	b := map[string]interface{}{}
	b["details"] = map[string]interface{}{"algorithm": "dod", "status": "success"}
	b["passes"] = 3
	b["deviceId"] = "dev-1"

	ba, err := Marshal(a)
	if err != nil {
		t.Fatalf("marshal a: %v", err)
	}
	bb, err := Marshal(b)
	if err != nil {
		t.Fatalf("marshal b: %v", err)
	}

	if string(ba) != string(bb) {
		t.Errorf("structurally equal payloads produced different bytes:\n a: %s\n b: %s", ba, bb)
	}
	if Digest(ba) != Digest(bb) {
		t.Errorf("digests differ for structurally equal payloads")
	}
}

func TestMarshalRejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]interface{}{
		"wipeDetails": map[string]interface{}{"passes": 3.0},
	})
	if err == nil {
		t.Fatal("expected error for float value, got nil")
	}
	var unsupported *ErrUnsupportedType
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if unsupported.Key != "wipeDetails.passes" {
		t.Errorf("expected key path wipeDetails.passes, got %q", unsupported.Key)
	}
}

func TestMarshalRejectsNil(t *testing.T) {
	_, err := Marshal(map[string]interface{}{"issuer": nil})
	if err == nil {
		t.Fatal("expected error for nil value, got nil")
	}
}

func TestMarshalEscapesStrings(t *testing.T) {
	got, err := Marshal(map[string]interface{}{"name": `a"b\c`})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(got), `\"`) || !strings.Contains(string(got), `\\`) {
		t.Errorf("quotes and backslashes should be escaped, got %s", got)
	}
}

func TestDigestLength(t *testing.T) {
	d := Digest([]byte("hello"))
	if len(d) != 64 {
		t.Errorf("expected 64 hex chars for SHA-256, got %d", len(d))
	}
}
