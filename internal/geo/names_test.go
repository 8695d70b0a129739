package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameLookup_CountryName(t *testing.T) {
	l, err := NewNameLookup()
	require.NoError(t, err)

	tests := []struct {
		code string
		want string
	}{
		{code: "US", want: "United States"},
		{code: "in", want: "India"},
		{code: "DE", want: "Germany"},
		{code: "", want: ""},
		{code: "USA", want: "USA"},
		{code: "Q1", want: "Q1"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, l.CountryName(tt.code))
		})
	}
}

func TestNameLookup_StateName(t *testing.T) {
	l, err := NewNameLookup()
	require.NoError(t, err)

	assert.Equal(t, "California", l.StateName("CA", "US"))
	assert.Equal(t, "California", l.StateName("US-CA", "us"))
	assert.Equal(t, "Maharashtra", l.StateName("MH", "IN"))
	assert.Equal(t, "Ontario", l.StateName("ON", "CA"))
	assert.Equal(t, "ZZ", l.StateName("ZZ", "US"))
	assert.Equal(t, "CA", l.StateName("CA", "XX"))
}
