package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- LLM Attributes ---

const (
	// AttrLLMProvider is the name of the completion provider (e.g., "openai")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStructured marks requests that asked for structured output
	AttrLLMStructured = "llm.structured"

	// AttrLLMTokensPrompt is the number of prompt tokens
	AttrLLMTokensPrompt = "llm.tokens.prompt" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokensCompletion is the number of completion tokens
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokensTotal is the total number of tokens
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"

	// AttrHTTPDuration is the round-trip time of the request
	AttrHTTPDuration = "http.request.duration"
)

// --- Workflow Attributes ---

const (
	// AttrRunID correlates every log line of one workflow run
	AttrRunID = "run.id"

	// AttrTopic is the requested document topic
	AttrTopic = "blog.topic"

	// AttrPlatform is the resolved platform key
	AttrPlatform = "blog.platform"

	// AttrStage is the workflow stage emitting the record
	AttrStage = "blog.stage"

	// AttrSectionID is the section a worker is drafting
	AttrSectionID = "blog.section.id"

	// AttrSearchQuery is a research query
	AttrSearchQuery = "search.query"

	// AttrCacheHit reports whether a cache lookup hit
	AttrCacheHit = "cache.hit"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanClientComplete is the span name for a completion call through the client
	SpanClientComplete = "client.complete"

	// SpanSearch is the span name for a search provider call
	SpanSearch = "search.query"
)

// --- Metric Names ---

const (
	// MetricClientRequestCount is the counter for provider attempts
	MetricClientRequestCount = "draftly.client.request.count"

	// MetricClientRequestDuration is the histogram for attempt duration
	MetricClientRequestDuration = "draftly.client.request.duration"

	// MetricClientTokensTotal is the counter for total tokens
	MetricClientTokensTotal = "draftly.client.tokens.total"

	// MetricCacheLookups is the counter for evidence cache lookups by hit/miss
	MetricCacheLookups = "draftly.cache.lookups"
)
