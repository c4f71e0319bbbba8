// Package prompt composes the instruction sent to the language model.
package prompt

import "strings"

const template = `
You're an assistant that summarizes Youtube videos based on their title and their transcript.

Hint: Use the title to correct potential typos in the transcript.

ADDITIONAL INSTRUCTIONS: {additional_instructions}

TITLE: {title}

TRANSCRIPT: {transcript}
`

// Build fills the summary template. Values are inserted verbatim and in a
// single pass, so placeholders inside a value are never expanded.
func Build(title, transcript, additionalInstructions string) string {
	r := strings.NewReplacer(
		"{additional_instructions}", additionalInstructions,
		"{title}", title,
		"{transcript}", transcript,
	)
	return r.Replace(template)
}
