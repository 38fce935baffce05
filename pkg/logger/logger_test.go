package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", INFO},
		{"debug", DEBUG},
		{"WARNING", WARN},
		{"warn", WARN},
		{" error ", ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfigure_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("json", &buf))
	t.Cleanup(func() { _ = Configure("text", nil) })
	SetLevel(INFO)

	InfoCF("vk", "Session acquired", map[string]any{"ts": "10"})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Session acquired", rec["msg"])
	assert.Equal(t, "vk", rec["component"])
	assert.Equal(t, "10", rec["ts"])
}

func TestConfigure_UnknownFormat(t *testing.T) {
	assert.Error(t, Configure("xml", nil))
}

func TestSetLevel_FiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("text", &buf))
	t.Cleanup(func() {
		_ = Configure("text", nil)
		SetLevel(INFO)
	})

	SetLevel(WARN)
	InfoC("vk", "hidden")
	assert.Empty(t, buf.String())

	WarnC("vk", "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestAddHook_MinLevelAndRemoval(t *testing.T) {
	require.NoError(t, Configure("text", &bytes.Buffer{}))
	t.Cleanup(func() { _ = Configure("text", nil) })

	var got []Entry
	remove := AddHook(WARN, func(e Entry) { got = append(got, e) })

	InfoC("vk", "ignored")
	WarnCF("vk", "poll failed", map[string]any{"error": "reset"})
	ErrorC("intent", "detector down")

	require.Len(t, got, 2)
	assert.Equal(t, WARN, got[0].Level)
	assert.Equal(t, "vk", got[0].Component)
	assert.Equal(t, "reset", got[0].Fields["error"])
	assert.Equal(t, ERROR, got[1].Level)

	remove()
	ErrorC("vk", "after removal")
	assert.Len(t, got, 2)
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "WARNING", WARN.String())
	assert.Equal(t, "ERROR", ERROR.String())
}
