package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentOrdinal(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{name: "dc54", want: 54},
		{name: "dc154", want: 154},
		{name: "dc999", want: 999},
		{name: "agent7", want: 7},
		{name: "x5", want: 5},
		{name: "9", want: 9},
		{name: "42", want: 42},
		{name: "edge_server_007", want: 7},
		{name: "dc1000", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AgentOrdinal(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgentOrdinal_NoDigit(t *testing.T) {
	for _, name := range []string{"abc", "dc5x", "", "dc-"} {
		t.Run(name, func(t *testing.T) {
			_, err := AgentOrdinal(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedAgent))

			var mae *MalformedAgentError
			require.True(t, errors.As(err, &mae))
			assert.Equal(t, name, mae.Name)
		})
	}
}

func TestAgentOrdinal_SignIsNotADigit(t *testing.T) {
	got, err := AgentOrdinal("dc-54")
	require.NoError(t, err)
	assert.Equal(t, 54, got)
}

func TestSortAgents(t *testing.T) {
	in := []string{"dc10", "dc2", "dc100", "dc1", "dc33"}

	got, err := SortAgents(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"dc1", "dc2", "dc10", "dc33", "dc100"}, got)
	assert.Equal(t, []string{"dc10", "dc2", "dc100", "dc1", "dc33"}, in, "input must not be reordered")
}

func TestSortAgents_TiesByName(t *testing.T) {
	got, err := SortAgents([]string{"b1", "a1", "c0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "a1", "b1"}, got)
}

func TestSortAgents_Malformed(t *testing.T) {
	_, err := SortAgents([]string{"dc1", "cloud"})
	assert.ErrorIs(t, err, ErrMalformedAgent)
}
