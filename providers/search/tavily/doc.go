// Package tavily implements [search.Provider] on top of the Tavily Search API,
// a web search service tuned for LLM grounding.
//
// The API key is read from TAVILY_API_KEY by [NewFromEnv] or passed to [New].
package tavily
