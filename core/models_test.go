package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleString(t *testing.T) {
	assert.Equal(t, "system", RoleSystem.String())
	assert.Equal(t, "human", RoleHuman.String())
	assert.Equal(t, "assistant", RoleAssistant.String())
	assert.Equal(t, "unknown", Role(0).String())
	assert.Equal(t, "unknown", Role(99).String())
}

func TestMessageConstructors(t *testing.T) {
	t.Run("system", func(t *testing.T) {
		m := SystemMessage("be helpful")
		assert.Equal(t, RoleSystem, m.Role)
		assert.Equal(t, "be helpful", m.Content)
	})

	t.Run("human", func(t *testing.T) {
		m := HumanMessage("oi")
		assert.Equal(t, RoleHuman, m.Role)
	})

	t.Run("assistant", func(t *testing.T) {
		m := AssistantMessage("olá")
		assert.Equal(t, RoleAssistant, m.Role)
	})
}

func TestMessageValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, HumanMessage("hello").Validate())
	})

	t.Run("bad role", func(t *testing.T) {
		err := Message{Role: Role(42), Content: "x"}.Validate()
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("empty content", func(t *testing.T) {
		err := Message{Role: RoleHuman}.Validate()
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestRewriteDecision(t *testing.T) {
	assert.True(t, RewriteDecision{Outcome: RewriteSearch, RefinedQuery: "q"}.WorthSearching())
	assert.False(t, RewriteDecision{Outcome: RewriteSkip}.WorthSearching())
	assert.False(t, RewriteDecision{Outcome: RewriteMalformed}.WorthSearching())
}
