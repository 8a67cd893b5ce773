package inference

import (
	"strings"
	"text/template"

	inferenceports "github.com/Jayayjay/HealHubChat/healhub/inference/ports"
)

// Chat template for Zephyr-style TinyLlama chat models.
// Matches the tokenizer's chat template so fine-tuned weights see the
// same framing they were trained on.

// Any role other than user renders with the assistant tag. The models
// only ever see user and assistant framing during fine-tuning, so stray
// system turns stored in history are presented the same way.
const ZephyrTemplate = `<|system|>
{{.System}}</s>
{{range .Turns}}{{if eq .Role "user"}}<|user|>
{{.Content}}</s>
{{else}}<|assistant|>
{{.Content}}</s>
{{end}}{{end}}<|assistant|>
`

const systemPreamble = "You are a compassionate mental health support assistant. " +
	"You provide empathetic, non-judgmental support and encouragement. " +
	"You listen actively and help users explore their feelings."

// maxContextTurns is the hard window on conversation history. Older turns
// are dropped so the prompt stays inside the model's context.
const maxContextTurns = 10

const assistantMarker = "<|assistant|>"

// defaultReply is returned when the model produces nothing usable.
const defaultReply = "I hear you. Can you tell me more about what you're experiencing?"

// minReplyLength is the shortest generation accepted as a real reply.
const minReplyLength = 10

// PromptBuilder renders conversation history into a model prompt.
type PromptBuilder struct {
	tmpl   *template.Template
	system string
}

type promptData struct {
	System string
	Turns  []inferenceports.Turn
}

// NewPromptBuilder creates a builder with the Zephyr chat template and the
// default support-assistant system preamble.
func NewPromptBuilder() *PromptBuilder {
	// The template is a compile-time constant, a parse failure is a bug.
	tmpl := template.Must(template.New("chat").Parse(ZephyrTemplate))
	return &PromptBuilder{
		tmpl:   tmpl,
		system: systemPreamble,
	}
}

// Build renders the system preamble plus the most recent turns, ending with
// an open assistant tag so generation continues from there.
func (b *PromptBuilder) Build(turns []inferenceports.Turn) (string, error) {
	if len(turns) > maxContextTurns {
		turns = turns[len(turns)-maxContextTurns:]
	}

	var sb strings.Builder
	err := b.tmpl.Execute(&sb, promptData{
		System: b.system,
		Turns:  turns,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ExtractReply pulls the assistant's reply out of raw model output. Models
// that echo the prompt get the text after the last assistant tag; otherwise
// the prompt prefix is stripped. Degenerate output falls back to a safe
// default reply.
func ExtractReply(raw, prompt string) string {
	var reply string
	if idx := strings.LastIndex(raw, assistantMarker); idx >= 0 {
		reply = raw[idx+len(assistantMarker):]
	} else {
		reply = strings.TrimPrefix(raw, prompt)
	}

	reply = strings.TrimSuffix(strings.TrimSpace(reply), "</s>")
	reply = strings.TrimSpace(reply)

	if len(reply) < minReplyLength {
		return defaultReply
	}
	return reply
}
