package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromText(t *testing.T) {
	assert.Equal(t, "What is a stack?", TitleFromText("What is a stack?"))
	assert.Equal(t, "New chat", TitleFromText("   "))
	assert.Equal(t, "a b", TitleFromText("  a \n\t b "))

	long := "Explain the difference between TCP and UDP in detail"
	got := TitleFromText(long)
	assert.Equal(t, "Explain the difference between...", got)
}

func TestTitleFromTextRuneSafe(t *testing.T) {
	text := "ééééééééééééééééééééééééééééééééééé"
	got := TitleFromText(text)
	assert.Equal(t, TitleMaxRunes+3, len([]rune(got)))
}

func TestParseTopic(t *testing.T) {
	assert.Equal(t, TopicNet, ParseTopic("net"))
	assert.Equal(t, TopicDSA, ParseTopic(" DSA "))
	assert.Equal(t, TopicGeneral, ParseTopic("astrology"))
	assert.Equal(t, "Networks", TopicNet.Label())
	assert.Len(t, Topics(), 6)
}

func TestErrorWrapping(t *testing.T) {
	base := errors.New("boom")
	up := fmt.Errorf("reply: %w", &UpstreamError{Op: "reply", Err: base})
	assert.True(t, IsUpstream(up))
	assert.False(t, IsPersistence(up))
	assert.ErrorIs(t, up, base)

	pe := &PersistenceError{Op: "append_turn", Err: ErrNotFound}
	assert.True(t, IsPersistence(pe))
	assert.ErrorIs(t, pe, ErrNotFound)

	ve := &ValidationError{Reasons: []string{"a", "b"}}
	assert.Equal(t, "validation failed: a; b", ve.Error())
}
