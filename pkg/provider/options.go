package provider

// ResolveTokenLimit picks the effective token limit from the options bag.
// Priority order: max_tokens > max_output_tokens > max_completion_tokens.
// Returns 0 when no limit is set; each gateway forwards a non-zero limit
// under its provider's currently-required field name.
func ResolveTokenLimit(opts Options) int {
	switch {
	case opts.MaxTokens > 0:
		return opts.MaxTokens
	case opts.MaxOutputTokens > 0:
		return opts.MaxOutputTokens
	case opts.MaxCompletionTokens > 0:
		return opts.MaxCompletionTokens
	default:
		return 0
	}
}

// streamTokenLimit resolves the limit for a streaming call, falling back to
// the gateway's default. Some model generations refuse to stream without an
// explicit limit, so streaming requests never go out with none.
func streamTokenLimit(opts Options, defaultLimit int) int {
	if limit := ResolveTokenLimit(opts); limit > 0 {
		return limit
	}
	return defaultLimit
}
