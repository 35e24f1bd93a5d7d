package machine

// SuppressedKeys returns the physical keys that must be swallowed at the OS
// level: every key of the table when suppression is enabled, none otherwise.
// The result is never nil so it can be pushed as-is to clear suppression.
func SuppressedKeys(table BindingTable, enabled bool) []string {
	if !enabled {
		return []string{}
	}
	return table.Keys()
}
