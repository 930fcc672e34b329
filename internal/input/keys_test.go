package input

import (
	"errors"
	"testing"

	"rustactions/internal/services"
)

func TestLookupKeyAliases(t *testing.T) {
	tests := []struct {
		name string
		want string
		vk   uint16
	}{
		{"KEYPAD1", "keypad1", 0x61},
		{" f13 ", "f13", 0x7C},
		{"/", "slash", 0xBF},
		{"return", "enter", 0x0D},
		{"bracket_left", "leftbracket", 0xDB},
	}
	for _, tt := range tests {
		key, ok := LookupKey(tt.name)
		if !ok {
			t.Fatalf("LookupKey(%q) not found", tt.name)
		}
		if key.Name != tt.want || key.VK != tt.vk {
			t.Fatalf("LookupKey(%q) = %+v, want %s/%#x", tt.name, key, tt.want, tt.vk)
		}
	}
	if _, ok := LookupKey("hyper"); ok {
		t.Fatal("expected unknown key to fail lookup")
	}
}

func TestParseCombo(t *testing.T) {
	keys, err := ParseCombo("keypaddivide+keypad1+f13+slash+comma")
	if err != nil {
		t.Fatalf("ParseCombo: %v", err)
	}
	want := []string{"keypaddivide", "keypad1", "f13", "slash", "comma"}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i, key := range keys {
		if key.Name != want[i] {
			t.Fatalf("key %d = %s, want %s", i, key.Name, want[i])
		}
	}
	if keys[2].Keysym != "F13" || keys[0].Keysym != "KP_Divide" {
		t.Fatalf("unexpected keysyms: %+v", keys)
	}

	_, err = ParseCombo("keypad1+nokey")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
