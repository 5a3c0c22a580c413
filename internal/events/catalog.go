package events

// CatalogReloaded announces that the served store was rebuilt from a manifest.
func CatalogReloaded(scripts int, checksum string) Event {
	return Event{
		Type: EventCatalogReloaded,
		Payload: map[string]any{
			"scripts":  scripts,
			"checksum": checksum,
		},
	}
}

// ScriptViewed announces a view count increment.
func ScriptViewed(scriptID int64) Event {
	return Event{
		Type:    EventScriptViewed,
		Payload: map[string]any{"script_id": scriptID},
	}
}

// ScriptTransitioned announces a KCS lifecycle move.
func ScriptTransitioned(scriptID int64, name, from, to, actor string) Event {
	return Event{
		Type: EventScriptTransitioned,
		Payload: map[string]any{
			"script_id": scriptID,
			"name":      name,
			"from":      from,
			"to":        to,
			"actor":     actor,
		},
	}
}

// ContributorAdded announces a new contributor on a script.
func ContributorAdded(scriptID int64, name, role string) Event {
	return Event{
		Type: EventContributorAdded,
		Payload: map[string]any{
			"script_id": scriptID,
			"name":      name,
			"role":      role,
		},
	}
}
