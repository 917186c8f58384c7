package events

// Log is the append-only activity log. Entries are never removed.
type Log struct {
	entries []ProcessEvent
}

// Append adds an entry unconditionally.
func (l *Log) Append(ev ProcessEvent) {
	l.entries = append(l.entries, ev)
}

// Merge appends the entries whose message is not already in the log and
// returns what was added. Duplicates inside evs itself are kept, matching a
// single filter pass against the log as it stood before the merge.
func (l *Log) Merge(evs []ProcessEvent) []ProcessEvent {
	if len(evs) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(l.entries))
	for _, e := range l.entries {
		seen[e.Message] = struct{}{}
	}

	var added []ProcessEvent
	for _, e := range evs {
		if _, ok := seen[e.Message]; ok {
			continue
		}
		added = append(added, e)
	}

	l.entries = append(l.entries, added...)

	return added
}

func (l *Log) Entries() []ProcessEvent {
	out := make([]ProcessEvent, len(l.entries))
	copy(out, l.entries)

	return out
}

func (l *Log) Len() int {
	return len(l.entries)
}
