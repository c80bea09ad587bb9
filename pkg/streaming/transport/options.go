package transport

// MergeOptions merges a variant's default start options with
// connection-level overrides. Keys present in overrides always win.
// Neither input map is modified.
func MergeOptions(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
