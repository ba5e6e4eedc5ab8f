package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReactions_Toggle_Adds_Then_Removes(t *testing.T) {
	req := require.New(t)
	reactions := make(Reactions)

	// When alice reacts
	reactions = reactions.Toggle("👍", "alice")
	req.Equal([]string{"alice"}, reactions["👍"])

	// And bob reacts with the same emoji
	reactions = reactions.Toggle("👍", "bob")
	req.Equal([]string{"alice", "bob"}, reactions["👍"])

	// When alice toggles again, only bob remains
	reactions = reactions.Toggle("👍", "alice")
	req.Equal([]string{"bob"}, reactions["👍"])
}

func TestReactions_Toggle_Drops_Empty_Key(t *testing.T) {
	req := require.New(t)
	reactions := make(Reactions)

	// Toggling twice is the identity: the emoji key never lingers empty
	reactions = reactions.Toggle("🔥", "alice")
	reactions = reactions.Toggle("🔥", "alice")

	_, exists := reactions["🔥"]
	req.False(exists)
	req.Empty(reactions)
}

func TestReactions_Clone_Is_Independent(t *testing.T) {
	req := require.New(t)
	reactions := make(Reactions)
	reactions = reactions.Toggle("👍", "alice")

	clone := reactions.Clone()
	reactions.Toggle("👍", "bob")

	req.Equal([]string{"alice"}, clone["👍"])
}

func TestReactions_Clone_Nil_Stays_Nil(t *testing.T) {
	var reactions Reactions
	require.Nil(t, reactions.Clone())
}
