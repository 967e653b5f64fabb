package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "catalogsync-test"})

	log.WithField(FieldUploadID, "u-1").Info("hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "catalogsync-test", line["service"])
	assert.Equal(t, "u-1", line[FieldUploadID])
	assert.Contains(t, line, "timestamp")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "warn", Output: &buf})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Output: &buf})

	ctx := base.WithContext(context.Background())
	ctx = SetUploadID(ctx, "upload-42")
	ctx = SetComponent(ctx, "pipeline")

	assert.Equal(t, "upload-42", GetUploadID(ctx))

	With(Fields{FieldChunk: 3}).WithCount(100).Info(ctx, "chunk %d done", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "upload-42", line[FieldUploadID])
	assert.Equal(t, "pipeline", line[FieldComponent])
	assert.EqualValues(t, 3, line[FieldChunk])
	assert.EqualValues(t, 100, line[FieldCount])
	assert.Equal(t, "chunk 3 done", line["message"])
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
	assert.Same(t, GetDefault(), FromContext(nil)) //nolint:staticcheck // nil context is handled explicitly
}
