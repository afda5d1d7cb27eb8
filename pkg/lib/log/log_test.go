package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

// TestLazyLogger_FollowsDefault 切换输出后，已创建的 LazyLogger 写到新目标
func TestLazyLogger_FollowsDefault(t *testing.T) {
	l := Logger("core/test")

	var buf bytes.Buffer
	SetOutputWithLevel(&buf, slog.LevelDebug)
	defer Discard()

	l.Debug("探测完成", "host", "example.com")

	out := buf.String()
	assert.Contains(t, out, "component=core/test")
	assert.Contains(t, out, "host=example.com")
	assert.Equal(t, "core/test", l.Component())
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	before := Default()
	SetDefault(nil)
	assert.Same(t, before, Default())
}
