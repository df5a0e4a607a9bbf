package interfaces

import "context"

// TTS is the text-to-speech interface. Implementations should be swappable.
type TTS interface {
	// Name identifies the vendor, e.g. "cartesia".
	Name() string
	// Speak converts text into audio bytes in the format the vendor was configured for.
	Speak(ctx context.Context, text string) ([]byte, error)
}

// STT is the speech-to-text interface.
type STT interface {
	Name() string
	// Recognize converts audio bytes into text (returns transcript and confidence)
	Recognize(ctx context.Context, audio []byte) (string, float32, error)
}

// LLM is the language model interface.
type LLM interface {
	Name() string
	// Chat returns the assistant's next message for the conversation. When
	// tools are offered the reply may carry ToolCalls instead of content.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

// AudioSink receives synthesized audio for playback into the call.
type AudioSink interface {
	WriteAudio(ctx context.Context, audio []byte) error
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec describes a callable action offered to the LLM. Parameters is a
// JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}
