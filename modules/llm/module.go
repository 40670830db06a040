// Package llm provides node kinds that talk to a chat-completion and
// embedding provider. Requests run on the engine's task pool, so results
// appear on the node's outputs on a later tick.
package llm

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/registry"
	"github.com/specialistvlad/nodegrid/modules/text"
	"github.com/zclconf/go-cty/cty"
)

const (
	DefaultSystemPrompt   = "You are a helpful assistant."
	DefaultUserPrompt     = "Hello!"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	Client Client
}

// Chat sends the system and user prompts to the provider.
type Chat struct {
	node.Base
	client Client
}

func (n *Chat) CreateInputs(d *node.Declarer) {
	d.Input("system", cty.String, cty.StringVal(DefaultSystemPrompt))
	d.Input("prompt", cty.String, cty.StringVal(DefaultUserPrompt))
	d.Input("model", cty.String, cty.StringVal(DefaultChatModel))
}

func (n *Chat) CreateOutputs(d *node.Declarer) {
	d.Output("response", cty.String)
	d.Output("status", cty.String)
}

func (n *Chat) Process(ctx context.Context) error {
	system, prompt, model := n.InputValue("system"), n.InputValue("prompt"), n.InputValue("model")
	if node.IsAbsent(prompt) || node.IsAbsent(model) || prompt.AsString() == "" {
		return nil
	}
	if !n.InputsChanged("system", "prompt", "model") {
		return nil
	}
	if n.client == nil {
		return ErrNoClient
	}

	messages := make([]Message, 0, 2)
	if !node.IsAbsent(system) && system.AsString() != "" {
		messages = append(messages, Message{Role: openai.ChatMessageRoleSystem, Content: system.AsString()})
	}
	messages = append(messages, Message{Role: openai.ChatMessageRoleUser, Content: prompt.AsString()})

	return n.Background(ctx, func(ctx context.Context) error {
		reply, err := n.client.Chat(ctx, model.AsString(), messages)
		if err != nil {
			return err
		}
		return n.PublishOutput("response", cty.StringVal(reply))
	})
}

// Embed turns text into an embedding vector.
type Embed struct {
	node.Base
	client Client
}

func (n *Embed) CreateInputs(d *node.Declarer) {
	d.Input("text", cty.String, cty.StringVal(""))
	d.Input("model", cty.String, cty.StringVal(DefaultEmbeddingModel))
}

func (n *Embed) CreateOutputs(d *node.Declarer) {
	d.Output("vector", cty.List(cty.Number))
	d.Output("status", cty.String)
}

func (n *Embed) Process(ctx context.Context) error {
	txt, model := n.InputValue("text"), n.InputValue("model")
	if node.IsAbsent(txt) || node.IsAbsent(model) || txt.AsString() == "" {
		return nil
	}
	if !n.InputsChanged("text", "model") {
		return nil
	}
	if n.client == nil {
		return ErrNoClient
	}

	return n.Background(ctx, func(ctx context.Context) error {
		vec, err := n.client.Embed(ctx, model.AsString(), txt.AsString())
		if err != nil {
			return err
		}
		return n.PublishOutput("vector", VectorVal(vec))
	})
}

// Transcript records every new response as a chat history.
type Transcript struct {
	node.Base

	mu      sync.Mutex
	history []string
}

func (n *Transcript) CreateInputs(d *node.Declarer) {
	d.Input("prompt", cty.String, cty.NilVal)
	d.Input("response", cty.String, cty.NilVal)
}

func (n *Transcript) CreateOutputs(d *node.Declarer) {
	d.Output("transcript", cty.List(cty.String))
}

func (n *Transcript) Process(ctx context.Context) error {
	resp := n.InputValue("response")
	if node.IsAbsent(resp) || !n.InputsChanged("response") {
		return nil
	}

	n.mu.Lock()
	if p := n.InputValue("prompt"); !node.IsAbsent(p) {
		n.history = append(n.history, "👤 You: "+p.AsString())
	}
	n.history = append(n.history, "🤖 Assistant: "+resp.AsString())
	lines := make([]cty.Value, len(n.history))
	for i, h := range n.history {
		lines[i] = cty.StringVal(h)
	}
	n.mu.Unlock()

	ctxlog.FromContext(ctx).Info("🤖 Assistant replied.", "nodeID", n.State().ID(), "response", resp.AsString())
	return n.SetOutputValue("transcript", cty.ListVal(lines))
}

// History returns a copy of the recorded transcript.
func (n *Transcript) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// VectorVal converts an embedding into a list of numbers.
func VectorVal(vec []float32) cty.Value {
	if len(vec) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	vals := make([]cty.Value, len(vec))
	for i, f := range vec {
		vals[i] = cty.NumberFloatVal(float64(f))
	}
	return cty.ListVal(vals)
}

// VectorFrom converts a list or tuple of numbers into an embedding.
func VectorFrom(v cty.Value) ([]float32, error) {
	if node.IsAbsent(v) {
		return nil, nil
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("vector must be a list of numbers, got %s", v.Type().FriendlyName())
	}
	out := make([]float32, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.Type() != cty.Number || node.IsAbsent(el) {
			return nil, fmt.Errorf("vector element must be a number, got %s", el.Type().FriendlyName())
		}
		f, _ := el.AsBigFloat().Float32()
		out = append(out, f)
	}
	return out, nil
}

// Register registers the kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(registry.Kind{
		Name:        "System Prompt",
		Category:    "LLM",
		Description: "A constant system prompt.",
		New:         func() node.Node { return text.NewConstant("system_prompt", DefaultSystemPrompt) },
	})
	r.RegisterKind(registry.Kind{
		Name:        "User Prompt",
		Category:    "LLM",
		Description: "A constant user prompt.",
		New:         func() node.Node { return text.NewConstant("user_prompt", DefaultUserPrompt) },
	})
	r.RegisterKind(registry.Kind{
		Name:        "LLM Chat",
		Category:    "LLM",
		Description: fmt.Sprintf("Runs a chat completion (default model %s).", DefaultChatModel),
		New:         func() node.Node { return &Chat{client: m.Client} },
	})
	r.RegisterKind(registry.Kind{
		Name:        "Embed",
		Category:    "LLM",
		Description: "Creates an embedding vector for a text.",
		New:         func() node.Node { return &Embed{client: m.Client} },
	})
	r.RegisterKind(registry.Kind{
		Name:        "LLM Output",
		Category:    "LLM",
		Description: "Keeps a transcript of assistant replies.",
		New:         func() node.Node { return &Transcript{} },
	})
}
