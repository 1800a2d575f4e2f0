package idgen

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{"十进制", "123456", 123456, false},
		{"首尾空白", " 42 ", 42, false},
		{"零", "0", 0, true},
		{"负数", "-1", 0, true},
		{"非数字", "abc", 0, true},
		{"空字符串", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestID_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		ID ID `json:"id"`
	}{ID: 1234567890123456789})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1234567890123456789"}`, string(data))

	var fromString, fromNumber ID
	require.NoError(t, json.Unmarshal([]byte(`"77"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`77`), &fromNumber))
	assert.Equal(t, ID(77), fromString)
	assert.Equal(t, ID(77), fromNumber)

	for _, input := range []string{`"x"`, `true`, `"0"`, `0`, `"-5"`, `-5`} {
		var bad ID
		assert.ErrorIs(t, json.Unmarshal([]byte(input), &bad), ErrInvalidID, input)
		assert.Zero(t, bad, input)
	}
}

func TestID_Time(t *testing.T) {
	sf, err := NewSnowflake(1, 2)
	require.NoError(t, err)

	before := time.Now().Add(-time.Millisecond)
	raw, err := sf.NextID()
	require.NoError(t, err)

	created := ID(raw).Time()
	assert.False(t, created.Before(before.Truncate(time.Millisecond)))
	assert.WithinDuration(t, time.Now(), created, time.Second)
}
