package keybinds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rustactions/internal/fileutil"
	"rustactions/internal/items"
	"rustactions/internal/logging"
	"rustactions/internal/services"
	"rustactions/internal/testsupport"
)

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg", "keys.cfg")
	m, err := New(path, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestCombinations(t *testing.T) {
	all := Combinations()
	if len(all) != 33649 {
		t.Fatalf("expected C(23,5)=33649 combinations, got %d", len(all))
	}
	if all[0] != "keypaddivide+keypadmultiply+keypadminus+keypadplus+keypadperiod" {
		t.Fatalf("first combination = %q", all[0])
	}
	if all[1] != "keypaddivide+keypadmultiply+keypadminus+keypadplus+keypad1" {
		t.Fatalf("second combination = %q", all[1])
	}
	if last := all[len(all)-1]; last != "slash+period+comma+leftbracket+rightbracket" {
		t.Fatalf("last combination = %q", last)
	}
	seen := make(map[string]bool, len(all))
	for _, combo := range all {
		if seen[combo] {
			t.Fatalf("duplicate combination %q", combo)
		}
		seen[combo] = true
	}
	if _, ok := ComboForSlot(-1); ok {
		t.Fatal("negative slot must not resolve")
	}
}

func TestAPISlots(t *testing.T) {
	tests := map[string]int{"kill": 3000, "respawn": 3001, "autorun": 3002, "hud_on": 3020, "cancel_all_crafting": 3063}
	for name, want := range tests {
		if got, ok := APISlot(name); !ok || got != want {
			t.Fatalf("APISlot(%s) = %d,%v want %d", name, got, ok, want)
		}
	}
	cmds := APICommands()
	if cmds[0].Combo == "" || cmds[0].Slot != APIStart {
		t.Fatalf("unexpected first command %+v", cmds[0])
	}
	if APIStart+len(cmds)-1 > APIEnd {
		t.Fatal("API table overflows its range")
	}
}

func TestGenerateAndResolve(t *testing.T) {
	m, path := newManager(t)

	n, err := m.Generate(testsupport.SampleItems())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 craftable items, got %d", n)
	}

	combo, err := m.Resolve(CraftAction("stone_pickaxe"))
	if err != nil {
		t.Fatalf("Resolve craft: %v", err)
	}
	if want, _ := ComboForSlot(2); combo != want {
		t.Fatalf("craft combo = %q, want slot 2 %q", combo, want)
	}
	cancel, err := m.Resolve(CancelAction("stone_pickaxe"))
	if err != nil {
		t.Fatalf("Resolve cancel: %v", err)
	}
	if want, _ := ComboForSlot(3); cancel != want {
		t.Fatalf("cancel combo = %q, want %q", cancel, want)
	}
	kill, err := m.Resolve("kill")
	if err != nil {
		t.Fatalf("Resolve kill: %v", err)
	}
	if want, _ := ComboForSlot(3000); kill != want {
		t.Fatalf("kill combo = %q, want %q", kill, want)
	}

	if _, err := m.Resolve(CraftAction("wood")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("uncraftable item should be not found, got %v", err)
	}
	if _, err := m.Resolve("fly"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown action should be not found, got %v", err)
	}

	content := readFile(t, path)
	for _, want := range []string{
		userStart, userEnd, actionsStart, actionsEnd,
		"# Craft/Cancel Stone Hatchet (ID: -262590403) - reserved bind no.0/1",
		"bind [" + combo + "] craft.add 171931394 1",
		"bind [" + cancel + "] craft.cancel 171931394 1",
		"# API: kill - reserved bind no.3000",
		"# Reserved bind no.6",
		"# Reserved bind no.4999",
		"bind tab inventory.toggle",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("keys.cfg missing %q", want)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o444 {
		t.Fatalf("expected read-only keys.cfg, got %v", info.Mode().Perm())
	}
	if s := m.Summary(); !s.ReadOnly || s.CraftItems != 3 || s.DynamicAvailable != DynamicCapacity {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestGenerateKeepsNamesInsideComments(t *testing.T) {
	m, path := newManager(t)
	recs := []items.Record{{
		ItemID:      "evil",
		Name:        "Evil\nbind w quit\r\x00",
		StackSize:   1,
		NumericID:   42,
		Ingredients: []items.Ingredient{{ItemID: "wood", Quantity: 1}},
	}}
	if _, err := m.Generate(recs); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, line := range strings.Split(readFile(t, path), "\n") {
		if strings.HasPrefix(line, "bind w quit") {
			t.Fatalf("item name escaped its comment: %q", line)
		}
	}
	if !strings.Contains(readFile(t, path), "# Craft/Cancel Evil bind w quit   (ID: 42)") {
		t.Fatal("expected flattened name in craft comment")
	}
}

func TestResolveCachesUntilCleared(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.Resolve("kill"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := m.Resolve("slot:42"); err != nil {
		t.Fatalf("Resolve slot: %v", err)
	}
	if got := m.ClearCache(); got != 2 {
		t.Fatalf("ClearCache cleared %d, want 2", got)
	}
	if got := m.ClearCache(); got != 0 {
		t.Fatalf("second ClearCache cleared %d, want 0", got)
	}
	if _, err := m.Resolve("slot:abc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserSectionPreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.cfg")
	testsupport.WriteFile(t, path, "bind w +forward\n# comment\nbind x say_hello\n")

	m, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.WriteConfig(); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := m.WriteConfig(); err != nil {
		t.Fatalf("second WriteConfig over read-only file: %v", err)
	}
	content := readFile(t, path)
	want := userStart + "\nbind w +forward\nbind x say_hello\n" + userEnd + "\n"
	if !strings.HasPrefix(content, want) {
		t.Fatalf("user section not preserved:\n%s", content[:min(len(content), 200)])
	}
	if strings.Contains(content, "bind tab inventory.toggle") {
		t.Fatal("stock binds must not replace existing user binds")
	}
}

func TestAssignDynamicPersistsAcrossRestart(t *testing.T) {
	m, path := newManager(t)

	first, err := m.AssignDynamic(KindChatSay, `hello "world"`)
	if err != nil {
		t.Fatalf("AssignDynamic: %v", err)
	}
	if !first.Created || first.Slot != DynamicStart {
		t.Fatalf("unexpected assignment %+v", first)
	}
	if first.Command != `chat.say "hello 'world'"` {
		t.Fatalf("command = %q", first.Command)
	}
	again, err := m.AssignDynamic(KindChatSay, `hello "world"`)
	if err != nil {
		t.Fatalf("AssignDynamic again: %v", err)
	}
	if again.Created || again.Slot != first.Slot {
		t.Fatalf("expected reuse of slot %d, got %+v", first.Slot, again)
	}
	second, err := m.AssignDynamic(KindConnect, "127.0.0.1:28015")
	if err != nil {
		t.Fatalf("AssignDynamic connect: %v", err)
	}
	if second.Slot != DynamicStart+1 {
		t.Fatalf("expected next slot, got %d", second.Slot)
	}

	content := readFile(t, path)
	if !strings.Contains(content, `# Dynamic: chat_say - 'hello "world"' - bind no.4000`) {
		t.Fatalf("dynamic comment missing")
	}
	if !strings.Contains(content, "disconnect;client.connect 127.0.0.1:28015") {
		t.Fatalf("connect bind missing")
	}

	restarted, err := New(path, nil)
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	binds := restarted.DynamicBinds()
	if len(binds) != 2 || binds[0].Slot != 4000 || binds[1].Kind != KindConnect {
		t.Fatalf("dynamic binds not restored: %+v", binds)
	}
	combo, err := restarted.Resolve(DynamicAction(KindChatSay, `hello "world"`))
	if err != nil {
		t.Fatalf("Resolve dynamic: %v", err)
	}
	if combo != first.Combo {
		t.Fatalf("combo = %q, want %q", combo, first.Combo)
	}
}

func TestAssignDynamicValidation(t *testing.T) {
	m, _ := newManager(t)
	if _, err := m.AssignDynamic("shout", "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation for unknown kind, got %v", err)
	}
	if _, err := m.AssignDynamic(KindChatSay, "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation for empty value, got %v", err)
	}
	if _, err := m.AssignDynamic(KindChatSay, "two\nlines"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation for multi-line value, got %v", err)
	}
	if _, err := m.AssignDynamic(KindChatSay, "bell\x07"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation for control character, got %v", err)
	}
}

func TestAssignDynamicReplacesLeastRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.cfg")
	full := make([]DynamicBind, 0, DynamicCapacity)
	for i := range DynamicCapacity {
		full = append(full, DynamicBind{Kind: KindChatSay, Value: fmt.Sprintf("msg %d", i), Slot: DynamicStart + i})
	}
	if err := fileutil.WriteFileAtomic(path, renderConfig(defaultUserBinds, nil, full), 0o644); err != nil {
		t.Fatalf("seed keys.cfg: %v", err)
	}
	m, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s := m.Summary(); s.DynamicBinds != DynamicCapacity || s.DynamicAvailable != 0 {
		t.Fatalf("expected full dynamic range, got %+v", s)
	}

	if _, err := m.AssignDynamic(KindChatSay, "msg 0"); err != nil {
		t.Fatalf("touch msg 0: %v", err)
	}
	got, err := m.AssignDynamic(KindChatTeamSay, "new")
	if err != nil {
		t.Fatalf("AssignDynamic: %v", err)
	}
	if !got.Created || got.Slot != DynamicStart+1 {
		t.Fatalf("expected slot of least recent bind (4001), got %+v", got)
	}
	if _, err := m.Resolve(DynamicAction(KindChatSay, "msg 1")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("replaced bind should be gone, got %v", err)
	}
	if _, err := m.Resolve(DynamicAction(KindChatSay, "msg 0")); err != nil {
		t.Fatalf("recently used bind should survive: %v", err)
	}
}

func TestReloadAndRegenerateCleared(t *testing.T) {
	m, path := newManager(t)
	other, err := New(path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.AssignDynamic(KindRespawnBag, "12345"); err != nil {
		t.Fatalf("AssignDynamic: %v", err)
	}

	n, err := other.ReloadDynamicBinds()
	if err != nil {
		t.Fatalf("ReloadDynamicBinds: %v", err)
	}
	if n != 1 {
		t.Fatalf("reloaded %d binds, want 1", n)
	}

	if err := m.RegenerateCleared(); err != nil {
		t.Fatalf("RegenerateCleared: %v", err)
	}
	if len(m.DynamicBinds()) != 0 {
		t.Fatalf("expected no dynamic binds, got %+v", m.DynamicBinds())
	}
	if strings.Contains(readFile(t, path), dynamicCommentPrefix) {
		t.Fatal("regenerated file still records dynamic binds")
	}
	if n, err := other.ReloadDynamicBinds(); err != nil || n != 0 {
		t.Fatalf("reload after regenerate = %d, %v", n, err)
	}
}

func TestParseDynamicComment(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want DynamicBind
	}{
		{"# Dynamic: chat_say - 'gg - wp' - bind no.4007", true, DynamicBind{Kind: KindChatSay, Value: "gg - wp", Slot: 4007}},
		{"# Dynamic: client_connect - 'a.b:1' - bind no.4999", true, DynamicBind{Kind: KindConnect, Value: "a.b:1", Slot: 4999}},
		{"# Dynamic: chat_say - 'x' - bind no.12", false, DynamicBind{}},
		{"# Dynamic: yell - 'x' - bind no.4001", false, DynamicBind{}},
		{"# Dynamic: chat_say - x - bind no.4001", false, DynamicBind{}},
	}
	for _, tt := range tests {
		got, ok := parseDynamicComment(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parseDynamicComment(%q) = %+v,%v want %+v,%v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, err := New(" ", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
