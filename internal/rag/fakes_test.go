package rag

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// fakeModel is a model.BaseChatModel that returns a fixed reply or error and
// records the messages it was called with.
type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	panics  bool
	calls   int
	lastIn  []*schema.Message
	lastOpt *model.Options
}

func (f *fakeModel) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastIn = in
	f.lastOpt = model.GetCommonOptions(&model.Options{}, opts...)
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("fakeModel: streaming not supported")
}

// fakeEmbedder returns the vector registered for a text, or err.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.EmbedOne(ctx, t)
	}
	return out
}

func (f *fakeEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, ErrProviderUnavailable
	}
	return v, nil
}
