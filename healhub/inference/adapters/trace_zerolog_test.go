package adapters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologTracerSpanLifecycle(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewZerologTracer(zerolog.New(&buf))

	ctx, finish := tracer.StartSpan(context.Background(), "generate", map[string]any{"turns": 3})
	tracer.Event(ctx, "prompt_built", map[string]any{"chars": 42})
	finish(nil)

	out := buf.String()
	assert.Contains(t, out, `"span":"generate"`)
	assert.Contains(t, out, `"event":"prompt_built"`)
	assert.Contains(t, out, `"event":"span_end"`)
	assert.Contains(t, out, `"duration"`)
}

func TestZerologTracerSpanError(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewZerologTracer(zerolog.New(&buf))

	_, finish := tracer.StartSpan(context.Background(), "generate", nil)
	finish(errors.New("model stalled"))

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "model stalled")
}

func TestNoopTracerPreservesContext(t *testing.T) {
	tracer := NoopTracer{}

	type key struct{}
	parent := context.WithValue(context.Background(), key{}, "kept")

	ctx, finish := tracer.StartSpan(parent, "generate", map[string]any{"turns": 1})
	require.NotNil(t, finish)
	assert.Equal(t, "kept", ctx.Value(key{}))

	tracer.Event(ctx, "prompt_built", nil)
	finish(errors.New("ignored"))
}
