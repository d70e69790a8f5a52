package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRebuilder struct {
	err   error
	calls []rebuildCall
}

type rebuildCall struct {
	documentID uint
	chunks     []string
}

func (f *fakeRebuilder) Rebuild(ctx context.Context, documentID uint, chunks []string) error {
	f.calls = append(f.calls, rebuildCall{documentID: documentID, chunks: chunks})
	return f.err
}

func TestIndex_ChunksAndRebuilds(t *testing.T) {
	rb := &fakeRebuilder{}
	o := NewOrchestrator(rb, 100, 20)

	text := strings.Repeat("Paris is the capital of France. ", 20)
	require.NoError(t, o.Index(context.Background(), 42, text))

	require.Len(t, rb.calls, 1)
	assert.Equal(t, uint(42), rb.calls[0].documentID)
	assert.NotEmpty(t, rb.calls[0].chunks)
	for _, c := range rb.calls[0].chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
}

func TestIndex_EmptyTextIsNoOp(t *testing.T) {
	rb := &fakeRebuilder{}
	o := NewOrchestrator(rb, 1000, 150)

	require.NoError(t, o.Index(context.Background(), 1, ""))
	require.NoError(t, o.Index(context.Background(), 1, "  \n\t "))
	assert.Empty(t, rb.calls)
}

func TestIndex_RebuildErrorPropagates(t *testing.T) {
	rb := &fakeRebuilder{err: errors.New("embedding backend unavailable")}
	o := NewOrchestrator(rb, 1000, 150)

	err := o.Index(context.Background(), 2, "some document text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index document 2")
}

func TestIndex_ReindexCallsRebuildAgain(t *testing.T) {
	rb := &fakeRebuilder{}
	o := NewOrchestrator(rb, 1000, 150)
	text := "Paris is the capital of France."

	require.NoError(t, o.Index(context.Background(), 3, text))
	require.NoError(t, o.Index(context.Background(), 3, text))

	require.Len(t, rb.calls, 2)
	assert.Equal(t, rb.calls[0].chunks, rb.calls[1].chunks)
}

func TestNewOrchestrator_InvalidParamsFallBack(t *testing.T) {
	rb := &fakeRebuilder{}
	o := NewOrchestrator(rb, 0, -5)
	require.NoError(t, o.Index(context.Background(), 4, "short text"))
	require.Len(t, rb.calls, 1)
}
