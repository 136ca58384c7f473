package llmclient

// Hook receives a telemetry event name and a free-form payload. Hooks must
// never panic; Client recovers around every invocation so a misbehaving
// hook cannot take down a request (spec.md §4.A).
type Hook func(event string, payload map[string]any)

func safeInvoke(hook Hook, event string, payload map[string]any) {
	if hook == nil {
		return
	}
	defer func() { _ = recover() }()
	hook(event, payload)
}
