package ai

// Summary prompts
const (
	SummarySystemPrompt = `You summarise news articles for a personal dashboard. Reply with the summary text only, no preamble or formatting.`

	SummaryUserPrompt = `Please provide a concise summary of this news article in 2-3 sentences. Focus on the key facts and main points.

Title: %s

Content: %s

Summary:`
)
