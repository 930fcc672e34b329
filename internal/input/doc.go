// Package input injects synthetic keyboard input into the foreground window.
//
// Injector is the OS facility: xdotool on X11 desktops, SendInput on Windows,
// and a Recorder that only logs what would be sent. Keyboard layers timing and
// mutual exclusion on top so each logical action (a key combination, a typed
// console command) reaches the game as one uninterrupted sequence.
package input
