package prompts

import (
	_ "embed"
)

//go:embed react_initial.txt
var ReActInitialPrompt string

// SynthesizerPrompt uses f-string placeholders {context_str} and {query_str}.
//
//go:embed synthesizer.txt
var SynthesizerPrompt string
