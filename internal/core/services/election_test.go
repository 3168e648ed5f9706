package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchparty/internal/core/domain"
)

func TestElectHost(t *testing.T) {
	tests := []struct {
		name     string
		known    domain.UserList
		departed domain.PeerID
		self     domain.PeerID
		want     domain.PeerID
		wantErr  error
	}{
		{
			name:     "smallest survivor wins",
			known:    domain.UserList{"h": {Name: "Host"}, "a": {Name: "Ann"}, "b": {Name: "Bob"}},
			departed: "h",
			self:     "c",
			want:     "a",
		},
		{
			name:     "self wins",
			known:    domain.UserList{"h": {}, "m": {}},
			departed: "h",
			self:     "b",
			want:     "b",
		},
		{
			name:     "departed host is excluded even when smallest",
			known:    domain.UserList{"a": {}, "z": {}},
			departed: "a",
			self:     "y",
			want:     "y",
		},
		{
			name:     "self missing from the known list",
			known:    domain.UserList{},
			departed: "h",
			self:     "g",
			want:     "g",
		},
		{
			name:     "no candidates",
			known:    domain.UserList{"h": {}},
			departed: "h",
			wantErr:  domain.ErrNoCandidates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ElectHost(tt.known, tt.departed, tt.self)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElectHost_DoesNotMutateKnown(t *testing.T) {
	known := domain.UserList{"h": {}, "a": {}}

	_, err := ElectHost(known, "h", "c")
	require.NoError(t, err)

	assert.Len(t, known, 2)
	assert.Contains(t, known, domain.PeerID("h"))
}

func TestElectionState(t *testing.T) {
	e := NewElectionState()
	assert.Equal(t, domain.ElectionIdle, e.Phase())

	require.True(t, e.Begin("h"))
	assert.True(t, e.InProgress())
	assert.Equal(t, domain.PeerID("h"), e.LastHost())
	assert.False(t, e.Begin("other"), "elections do not nest")

	e.Await()
	assert.Equal(t, domain.ElectionAwaitingHost, e.Phase())
	assert.False(t, e.Begin("h"))

	e.Abort()
	assert.False(t, e.InProgress())
	assert.True(t, e.Begin("a"))

	e.Reset()
	assert.Equal(t, domain.ElectionIdle, e.Phase())
}
