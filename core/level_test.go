package core

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFilter_Enabled(t *testing.T) {
	assert.False(t, LevelFilterOff.Enabled(LevelError))
	assert.True(t, LevelFilterError.Enabled(LevelError))
	assert.False(t, LevelFilterError.Enabled(LevelWarn))
	assert.True(t, LevelFilterInfo.Enabled(LevelWarn))
	assert.True(t, LevelFilterInfo.Enabled(LevelInfo))
	assert.False(t, LevelFilterInfo.Enabled(LevelDebug))
	assert.True(t, LevelFilterTrace.Enabled(LevelTrace))
	assert.False(t, LevelFilterTrace.Enabled(Level(0)))
	assert.True(t, LevelFilterUnset.Enabled(LevelInfo))
	assert.False(t, LevelFilterUnset.Enabled(LevelDebug))
}

func TestLevelFilter_OrDefault(t *testing.T) {
	assert.Equal(t, DefaultLevelFilter, LevelFilterUnset.OrDefault())
	assert.Equal(t, LevelFilterOff, LevelFilterOff.OrDefault())
	assert.Equal(t, LevelFilterTrace, LevelFilterTrace.OrDefault())
	assert.Equal(t, "default", LevelFilterUnset.String())
}

func TestParseLevelFilter(t *testing.T) {
	tests := []struct {
		in   string
		want LevelFilter
	}{
		{"off", LevelFilterOff},
		{"error", LevelFilterError},
		{"WARN", LevelFilterWarn},
		{"warning", LevelFilterWarn},
		{" info ", LevelFilterInfo},
		{"debug", LevelFilterDebug},
		{"trace", LevelFilterTrace},
		{"", DefaultLevelFilter},
		{"default", DefaultLevelFilter},
	}
	for _, tt := range tests {
		got, err := ParseLevelFilter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevelFilter("loud")
	assert.ErrorIs(t, err, ErrInvalidLevelFilter)
}

func TestLevelFilter_DefaultIsInfo(t *testing.T) {
	assert.Equal(t, LevelFilterInfo, DefaultLevelFilter)
}

func TestLevelFilter_TOML(t *testing.T) {
	var doc struct {
		Level LevelFilter `toml:"level"`
	}
	_, err := toml.Decode(`level = "debug"`, &doc)
	require.NoError(t, err)
	assert.Equal(t, LevelFilterDebug, doc.Level)

	_, err = toml.Decode(`level = "chatty"`, &doc)
	assert.Error(t, err)

	text, err := LevelFilterTrace.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "trace", string(text))
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "trace", LevelTrace.String())
	assert.Equal(t, "LevelFilter(9)", LevelFilter(9).String())
}
