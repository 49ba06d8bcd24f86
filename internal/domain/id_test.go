package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordID(t *testing.T) {
	hash := "0x" + strings.Repeat("Ab", 32)

	id, err := ParseRecordID(hash + "-17")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(hash), id.TxHash)
	assert.Equal(t, uint32(17), id.LogIndex)
	assert.Equal(t, MakeRecordID(hash, 17), id.String())

	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"no separator", hash},
		{"no log index", hash + "-"},
		{"no hash", "-3"},
		{"short hash", "0xab-3"},
		{"no prefix", strings.Repeat("ab", 32) + "-3"},
		{"not hex", "0x" + strings.Repeat("zz", 32) + "-3"},
		{"log index overflows uint32", hash + "-4294967296"},
		{"negative log index", hash + "--1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordID(tt.id)
			assert.Error(t, err)
		})
	}
}
