package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignals(t *testing.T) {
	s := NewSignals()
	var got []any
	id := s.Connect("alert.created", func(sender any, params ...any) {
		got = append(got, sender)
		got = append(got, params...)
	})

	s.Emit("alert.created", "a", 1)
	s.Emit("other", "b")
	assert.Equal(t, []any{"a", 1}, got)

	s.Disconnect("alert.created", id)
	s.Emit("alert.created", "c")
	assert.Len(t, got, 2)
}
