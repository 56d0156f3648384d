package logger

import (
    "bytes"
    "context"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestInitWriterProductionEmitsJSON(t *testing.T) {
    var buf bytes.Buffer
    l := InitWriter("prod", &buf)
    l.Info("listing created", "listing_id", 7)

    var line map[string]any
    require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
    assert.Equal(t, "listing created", line["msg"])
    assert.EqualValues(t, 7, line["listing_id"])
}

func TestInitWriterDevelopmentLogsDebug(t *testing.T) {
    var buf bytes.Buffer
    l := InitWriter("dev", &buf)
    l.Debug("probe", "slug", "go-dev-acme")
    assert.Contains(t, buf.String(), "slug=go-dev-acme")
}

func TestFromContextPrefersRequestLogger(t *testing.T) {
    var buf bytes.Buffer
    base := InitWriter("prod", &buf)
    reqLogger := base.With("request_id", "abc")

    ctx := WithContext(context.Background(), reqLogger)
    FromContext(ctx).Info("hello")
    assert.Contains(t, buf.String(), `"request_id":"abc"`)

    assert.Equal(t, base, FromContext(context.Background()))
}
