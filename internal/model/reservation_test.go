package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsActiveStatus(t *testing.T) {
	assert.True(t, IsActiveStatus(StatusPending))
	assert.True(t, IsActiveStatus(StatusConfirmed))
	assert.False(t, IsActiveStatus(StatusCancelled))
	assert.False(t, IsActiveStatus(StatusCompleted))
	assert.False(t, IsActiveStatus("pending")) // statuses are case sensitive
}

func TestIsSettableStatus(t *testing.T) {
	assert.True(t, IsSettableStatus(StatusConfirmed))
	assert.True(t, IsSettableStatus(StatusCancelled))
	assert.True(t, IsSettableStatus(StatusCompleted))
	assert.False(t, IsSettableStatus(StatusPending))
	assert.False(t, IsSettableStatus(""))
}
