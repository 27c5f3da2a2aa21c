// Package hotkey registers a global key combination via gohook and
// fires a callback when every key in the combination is held.
package hotkey

import (
	"log"
	"strings"

	gohook "github.com/robotn/gohook"
)

// Windows virtual-key rawcodes; modifiers list both left and right
// variants.
var keyRawcodes = map[string][]uint16{
	"ctrl":  {162, 163},
	"alt":   {164, 165},
	"shift": {160, 161},
	"win":   {91, 92},
	"cmd":   {91, 92},
	"super": {91, 92},

	"space":  {32},
	"enter":  {13},
	"return": {13},
	"esc":    {27},
	"escape": {27},
	"tab":    {9},
}

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		keyRawcodes[string(c)] = []uint16{uint16(c - 'a' + 65)} // VK_A..VK_Z
	}
	for c := byte('0'); c <= '9'; c++ {
		keyRawcodes[string(c)] = []uint16{uint16(c)} // VK_0..VK_9
	}
	for i := 1; i <= 24; i++ {
		keyRawcodes[fmtF(i)] = []uint16{uint16(111 + i)} // VK_F1..VK_F24
	}
}

func fmtF(i int) string {
	if i < 10 {
		return "f" + string(rune('0'+i))
	}
	return "f" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

// ParseCombo splits "Ctrl+Alt+A" into normalized key names.
func ParseCombo(combo string) []string {
	var keys []string
	for _, part := range strings.Split(combo, "+") {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

func keyNameToRawcodes(keyName string) []uint16 {
	return keyRawcodes[strings.ToLower(strings.TrimSpace(keyName))]
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Listen registers the combination and invokes callback each time all
// of its keys are down together. The callback runs on the hook
// goroutine; keep it short (post to a channel).
func Listen(combo string, callback func()) {
	keys := ParseCombo(combo)

	var states []keyState
	for _, name := range keys {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			log.Printf("Hotkey: cannot map key %q, combination may not work", name)
			continue
		}
		states = append(states, keyState{name: name, rawcodes: rawcodes})
	}
	if len(states) == 0 {
		log.Printf("Hotkey: no valid keys in %q", combo)
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Hotkey goroutine panic: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("Hotkey: gohook.Start() returned nil channel")
			return
		}
		log.Printf("Hotkey: listening for %s", combo)

		// states is touched only from this goroutine.
		for ev := range evChan {
			if ev.Kind != gohook.KeyDown && ev.Kind != gohook.KeyUp {
				continue
			}

			idx := matchingKey(states, ev.Rawcode)
			if idx < 0 {
				continue
			}

			if ev.Kind == gohook.KeyUp {
				states[idx].pressed = false
				continue
			}

			states[idx].pressed = true
			all := true
			for i := range states {
				if !states[i].pressed {
					all = false
					break
				}
			}
			if all {
				for i := range states {
					states[i].pressed = false
				}
				if callback != nil {
					callback()
				}
			}
		}
		log.Printf("Hotkey: event channel closed")
	}()
}

func matchingKey(states []keyState, rawcode uint16) int {
	for i := range states {
		for _, rc := range states[i].rawcodes {
			if rc == rawcode {
				return i
			}
		}
	}
	return -1
}
