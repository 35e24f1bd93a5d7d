package machine

import "sort"

// Raw mapping values with a special meaning in a keymap.
const (
	MappingNoOp       = "no-op"
	MappingArpeggiate = "arpeggiate"
)

type ActionKind int

const (
	ActionKey ActionKind = iota + 1
	ActionNoOp
	ActionArpeggiate
)

// Action is what a physical key does once the keymap has been compiled.
// Steno is only set for ActionKey.
type Action struct {
	Kind  ActionKind
	Steno string
}

func parseAction(mapping string) Action {
	switch mapping {
	case MappingNoOp:
		return Action{Kind: ActionNoOp}
	case MappingArpeggiate:
		return Action{Kind: ActionArpeggiate}
	default:
		return Action{Kind: ActionKey, Steno: mapping}
	}
}

// BindingTable maps physical key names to actions. Arpeggiate entries never
// survive a rebuild: they are either turned into no-ops or dropped.
type BindingTable map[string]Action

// Rebuild compiles raw keymap bindings into a fresh table. When arpeggiate is
// enabled the arpeggiate key is returned with ok set; if several keys are bound
// to arpeggiate, the last one in key order wins.
func Rebuild(bindings map[string]string, arpeggiate bool) (table BindingTable, arpeggiateKey string, ok bool) {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table = make(BindingTable, len(bindings))
	for _, key := range keys {
		action := parseAction(bindings[key])
		if action.Kind == ActionArpeggiate {
			if !arpeggiate {
				// Unused arpeggiate keys stay unbound so they are not suppressed.
				continue
			}
			arpeggiateKey, ok = key, true
			action = Action{Kind: ActionNoOp}
		}
		table[key] = action
	}
	return table, arpeggiateKey, ok
}

// Lookup returns the steno key bound to a physical key. Unbound and no-op
// keys report false.
func (t BindingTable) Lookup(key string) (string, bool) {
	a, ok := t[key]
	if !ok || a.Kind != ActionKey {
		return "", false
	}
	return a.Steno, true
}

// Keys returns the bound physical keys in sorted order.
func (t BindingTable) Keys() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
