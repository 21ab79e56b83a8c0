package id

import (
	"github.com/stretchr/testify/assert"

	"testing"
	"time"
)

func TestNew_Sortable(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := New(now)
	for i := 0; i < 100; i++ {
		next := New(now)
		assert.Less(t, prev, next)
		prev = next
	}
	assert.Less(t, prev, New(now.Add(time.Millisecond)))
}
