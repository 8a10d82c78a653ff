package entity

// AgentPayload is what every agent and tool consumes and produces. Messages
// is the conversation; IsFinal tells the caller no further tool resolution is
// expected from this payload.
type AgentPayload struct {
	Messages  []Message      `json:"messages"`
	IsFinal   bool           `json:"is_final"`
	Artifacts map[string]any `json:"artifacts,omitempty"`
}

func NewAgentPayload(messages ...Message) *AgentPayload {
	return &AgentPayload{Messages: messages}
}

// LastMessage returns the zero Message when the payload is empty.
func (p *AgentPayload) LastMessage() Message {
	if p == nil || len(p.Messages) == 0 {
		return Message{}
	}
	return p.Messages[len(p.Messages)-1]
}

func (p *AgentPayload) Clone() *AgentPayload {
	if p == nil {
		return &AgentPayload{}
	}

	messages := make([]Message, len(p.Messages))
	copy(messages, p.Messages)

	var artifacts map[string]any
	if p.Artifacts != nil {
		artifacts = make(map[string]any, len(p.Artifacts))
		for k, v := range p.Artifacts {
			artifacts[k] = v
		}
	}

	return &AgentPayload{
		Messages:  messages,
		IsFinal:   p.IsFinal,
		Artifacts: artifacts,
	}
}

type SourceChunk struct {
	Name     string            `json:"name"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type SourcedResponse struct {
	Response     string        `json:"response"`
	Sources      []SourceChunk `json:"sources"`
	IsSuccessful bool          `json:"is_successful"`
}
