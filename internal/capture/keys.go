package capture

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	vkBack      = 0x08
	vkTab       = 0x09
	vkReturn    = 0x0D
	vkEscape    = 0x1B
	vkSpace     = 0x20
	vkOEM1      = 0xBA // ;
	vkOEMPlus   = 0xBB // =
	vkOEMComma  = 0xBC
	vkOEMMinus  = 0xBD
	vkOEMPeriod = 0xBE
	vkOEM2      = 0xBF // /
	vkOEM3      = 0xC0 // `
	vkOEM4      = 0xDB // [
	vkOEM5      = 0xDC // \
	vkOEM6      = 0xDD // ]
	vkOEM7      = 0xDE // '
)

var namedKeys = map[string]uint32{
	"backspace": vkBack,
	"tab":       vkTab,
	"return":    vkReturn,
	"escape":    vkEscape,
	"space":     vkSpace,
	";":         vkOEM1,
	"=":         vkOEMPlus,
	",":         vkOEMComma,
	"-":         vkOEMMinus,
	".":         vkOEMPeriod,
	"/":         vkOEM2,
	"`":         vkOEM3,
	"[":         vkOEM4,
	"\\":        vkOEM5,
	"]":         vkOEM6,
	"'":         vkOEM7,
	"insert":    0x2D,
	"delete":    0x2E,
	"home":      0x24,
	"end":       0x23,
	"page_up":   0x21,
	"page_down": 0x22,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
}

var aliases = map[string]string{
	"esc":          "escape",
	"enter":        "return",
	"pageup":       "page_up",
	"pagedown":     "page_down",
	"semicolon":    ";",
	"equal":        "=",
	"comma":        ",",
	"minus":        "-",
	"period":       ".",
	"slash":        "/",
	"grave":        "`",
	"bracketleft":  "[",
	"backslash":    "\\",
	"bracketright": "]",
	"apostrophe":   "'",
}

var vkNames map[uint32]string

func init() {
	vkNames = make(map[uint32]string, len(namedKeys)+60)
	for name, vk := range namedKeys {
		vkNames[vk] = name
	}
	for ch := 'a'; ch <= 'z'; ch++ {
		vkNames[uint32(ch-'a'+'A')] = string(ch)
	}
	for ch := '0'; ch <= '9'; ch++ {
		vkNames[uint32(ch)] = string(ch)
	}
	for n := 1; n <= 24; n++ {
		vkNames[0x70+uint32(n-1)] = fmt.Sprintf("f%d", n)
	}
}

// CanonicalName normalizes a keymap key name: lower case, aliases resolved.
func CanonicalName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 {
		s = strings.ToLower(s)
	}
	if a, ok := aliases[s]; ok {
		return a
	}
	return s
}

// VirtualKey returns the Windows virtual-key code for a key name.
func VirtualKey(name string) (uint32, error) {
	name = CanonicalName(name)
	if name == "" {
		return 0, fmt.Errorf("empty key")
	}
	if len(name) == 1 {
		ch := name[0]
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		if ch >= 'a' && ch <= 'z' {
			return uint32(ch - 'a' + 'A'), nil
		}
		if ch >= '0' && ch <= '9' {
			return uint32(ch), nil
		}
	}
	if vk, ok := namedKeys[name]; ok {
		return vk, nil
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(strings.TrimPrefix(name, "f")); err == nil && n >= 1 && n <= 24 {
			return 0x70 + uint32(n-1), nil
		}
	}
	return 0, fmt.Errorf("unsupported key name: %s", name)
}

// KeyName is the inverse of VirtualKey. ok is false for keys the capture
// layer does not report.
func KeyName(vk uint32) (string, bool) {
	name, ok := vkNames[vk]
	return name, ok
}
