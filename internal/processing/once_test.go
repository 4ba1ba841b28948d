package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnce(t *testing.T) {
	cell := NewOnce[[]int](compatibilityVariablesLabel)
	assert.False(t, cell.IsSet())

	_, err := cell.Get()
	assert.Equal(t, InvariantCompatibilityNotSet, Invariant(err))

	require.NoError(t, cell.Set([]int{1, 2}))
	assert.True(t, cell.IsSet())

	err = cell.Set([]int{3})
	assert.Equal(t, InvariantCompatibilityAlreadySet, Invariant(err))

	v, err := cell.Get()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)
}

func TestContractError_Message(t *testing.T) {
	err := &ContractError{Invariant: InvariantMissingPrimaryLayer, Detail: "polygon X 1970"}
	assert.Equal(t, "contract violation: missing primary layer: polygon X 1970", err.Error())
	assert.Equal(t, "contract violation: polygon not set", (&ContractError{Invariant: InvariantPolygonNotSet}).Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := &ContractError{Invariant: "inner"}
	err := &Error{Message: "outer", Cause: cause}
	assert.True(t, IsContractError(err))
	assert.Equal(t, "inner", Invariant(err))
	assert.False(t, IsContractError(&Error{Message: "plain"}))
}
