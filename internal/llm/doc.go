// Package llm is the AI assistant: OpenAI and Anthropic completion clients
// behind one interface, plus categorization, insights and chat with rate
// limiting, retry, response caching and fixed fallbacks on failure.
package llm
