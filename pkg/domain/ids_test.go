package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rightsledger/pkg/domain-errors"
)

func TestParseInstrumentID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw := uuid.New()
		got, err := ParseInstrumentID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, InstrumentID(raw), got)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseInstrumentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseInstrumentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil uuid", func(t *testing.T) {
		_, err := ParseInstrumentID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseAccountID(t *testing.T) {
	raw := uuid.New()
	got, err := ParseAccountID(raw.String())
	require.NoError(t, err)
	assert.Equal(t, AccountID(raw), got)

	_, err = ParseAccountID(uuid.Nil.String())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIDJSONRoundTrip(t *testing.T) {
	original := InstrumentID(uuid.New())

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+original.String()+`"`, string(data))

	var decoded InstrumentID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestIsNil(t *testing.T) {
	assert.True(t, InstrumentID{}.IsNil())
	assert.True(t, AccountID{}.IsNil())
	assert.False(t, InstrumentID(uuid.New()).IsNil())
}
