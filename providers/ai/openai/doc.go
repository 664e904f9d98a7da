// Package openai implements ai.Provider for OpenAI-compatible
// /chat/completions endpoints. The default base URL targets OpenRouter, which
// fronts every model the blog workflow uses behind one API key.
package openai
