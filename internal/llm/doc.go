// Package llm provides language model collaborators for request extraction,
// category analysis, and recommendation summaries. It supports OpenAI and
// Anthropic providers, with retry logic, rate limiting, and response caching.
package llm
