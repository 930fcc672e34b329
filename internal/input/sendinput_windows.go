//go:build windows

package input

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard       = 1
	keyeventfExtended   = 0x0001
	keyeventfKeyUp      = 0x0002
	keyeventfUnicode    = 0x0004
	keyeventfScanCode   = 0x0008
	mapvkVKToVSC        = 0
	windowTitleCapacity = 512
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendInput           = user32.NewProc("SendInput")
	procMapVirtualKeyW      = user32.NewProc("MapVirtualKeyW")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW      = user32.NewProc("GetWindowTextW")
)

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keyboardEvent struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte // pad to sizeof(INPUT)
}

// SendInput injects key events through the Win32 SendInput API. Scan codes
// are sent alongside virtual-key codes since games commonly read scan codes.
type SendInput struct{}

func newSendInput() (Injector, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("load SendInput: %w", err)
	}
	return &SendInput{}, nil
}

func (s *SendInput) Name() string { return BackendSendInput }

func (s *SendInput) KeyDown(k Key) error { return s.sendKey(k, 0) }

func (s *SendInput) KeyUp(k Key) error { return s.sendKey(k, keyeventfKeyUp) }

func (s *SendInput) sendKey(k Key, flags uint32) error {
	scan, _, _ := procMapVirtualKeyW.Call(uintptr(k.VK), mapvkVKToVSC)
	if k.Extended {
		flags |= keyeventfExtended
	}
	if scan != 0 {
		flags |= keyeventfScanCode
	}
	ev := keyboardEvent{Type: inputKeyboard, Ki: keybdInput{Vk: k.VK, Scan: uint16(scan), Flags: flags}}
	return send([]keyboardEvent{ev})
}

// TypeText sends text as Unicode key events, independent of keyboard layout.
func (s *SendInput) TypeText(text string) error {
	units := utf16.Encode([]rune(text))
	events := make([]keyboardEvent, 0, len(units)*2)
	for _, u := range units {
		events = append(events,
			keyboardEvent{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode}},
			keyboardEvent{Type: inputKeyboard, Ki: keybdInput{Scan: u, Flags: keyeventfUnicode | keyeventfKeyUp}},
		)
	}
	return send(events)
}

// ActiveWindowTitle returns the foreground window's title.
func (s *SendInput) ActiveWindowTitle() (string, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return "", fmt.Errorf("no foreground window")
	}
	buf := make([]uint16, windowTitleCapacity)
	n, _, err := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 && err != windows.ERROR_SUCCESS {
		return "", fmt.Errorf("GetWindowTextW: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func send(events []keyboardEvent) error {
	if len(events) == 0 {
		return nil
	}
	n, _, err := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("SendInput sent %d of %d events: %w", n, len(events), err)
	}
	return nil
}
