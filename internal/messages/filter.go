package messages

// DefaultArtifactWindow is the number of artifacts LatestArtifacts returns
// when no explicit window is given.
const DefaultArtifactWindow = 3

// FilterByType returns the messages of the given type, in order.
func FilterByType(msgs []AgentMessage, typ MessageType) []AgentMessage {
	var out []AgentMessage
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

// FilterByTag returns the messages carrying tag, in order.
func FilterByTag(msgs []AgentMessage, tag string) []AgentMessage {
	var out []AgentMessage
	for _, m := range msgs {
		if m.HasTag(tag) {
			out = append(out, m)
		}
	}
	return out
}

// Artifacts returns all messages that carry artifact metadata, in order.
func Artifacts(msgs []AgentMessage) []AgentMessage {
	var out []AgentMessage
	for _, m := range msgs {
		if m.Artifact != nil {
			out = append(out, m)
		}
	}
	return out
}

// LatestArtifacts returns the n most recent artifact messages, oldest first.
// n <= 0 selects DefaultArtifactWindow.
func LatestArtifacts(msgs []AgentMessage, n int) []AgentMessage {
	if n <= 0 {
		n = DefaultArtifactWindow
	}
	all := Artifacts(msgs)
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}
