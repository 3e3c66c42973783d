package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withArtifact(name string) AgentMessage {
	return AgentMessage{
		Role:     RoleTool,
		Content:  name,
		Type:     TypeToolResult,
		Artifact: NewArtifactInfo(ActionCreate, name, "text/plain", "call_"+name),
	}
}

func TestLatestArtifacts_Window(t *testing.T) {
	msgs := []AgentMessage{
		NewText(RoleUser, "0"),
		withArtifact("1"),
		NewText(RoleAssistant, "2"),
		withArtifact("3"),
		withArtifact("4"),
	}

	latest := LatestArtifacts(msgs, 2)
	assert.Len(t, latest, 2)
	assert.Equal(t, "3", latest[0].Artifact.Filename)
	assert.Equal(t, "4", latest[1].Artifact.Filename)

	all := Artifacts(msgs)
	assert.Len(t, all, 3)
	assert.Equal(t, "1", all[0].Artifact.Filename)
}

func TestLatestArtifacts_FewerThanN(t *testing.T) {
	msgs := []AgentMessage{withArtifact("a"), NewText(RoleUser, "x")}
	assert.Len(t, LatestArtifacts(msgs, 5), 1)
	assert.Empty(t, LatestArtifacts([]AgentMessage{NewText(RoleUser, "x")}, 3))
}

func TestLatestArtifacts_DefaultWindow(t *testing.T) {
	var msgs []AgentMessage
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		msgs = append(msgs, withArtifact(n))
	}
	latest := LatestArtifacts(msgs, 0)
	assert.Len(t, latest, DefaultArtifactWindow)
	assert.Equal(t, "c", latest[0].Artifact.Filename)
}

func TestFilterByType(t *testing.T) {
	msgs := []AgentMessage{
		NewText(RoleUser, "hi"),
		{Role: RoleTool, Type: TypeToolResult, Content: "r1"},
		NewText(RoleAssistant, "ok"),
		{Role: RoleTool, Type: TypeToolResult, Content: "r2"},
	}
	results := FilterByType(msgs, TypeToolResult)
	assert.Len(t, results, 2)
	assert.Equal(t, "r2", results[1].Content)
	assert.Empty(t, FilterByType(msgs, TypeArtifact))
}

func TestFilterByTag(t *testing.T) {
	msgs := []AgentMessage{
		NewText(RoleUser, "a").WithTags("steering"),
		NewText(RoleUser, "b"),
		NewText(RoleUser, "c").WithTags("x", "steering"),
	}
	tagged := FilterByTag(msgs, "steering")
	assert.Len(t, tagged, 2)
	assert.Equal(t, "c", tagged[1].Text())
}
