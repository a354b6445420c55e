package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrClassificationFailed is returned when the pipeline cannot derive product information
	ErrClassificationFailed = errors.New("product classification failed")

	// ErrLLMFailure is returned when a chat-completion request fails
	ErrLLMFailure = errors.New("chat completion request failed")

	// ErrEmptyResponse is returned when the model reply carries no choices
	ErrEmptyResponse = errors.New("empty model response")

	// ErrRateLimited is returned when an upstream provider rejects for rate limiting
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
