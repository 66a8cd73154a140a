// Package catalog defines the supported model set and its display metadata.
//
// Membership in the catalog gates every completion request: unknown model
// strings are rejected at the API boundary and never reach a provider.
package catalog

// Provider identifies which vendor gateway serves a model.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic models appear in the catalog for the UI picker but
	// have no gateway yet; requests for them are rejected at the boundary.
	ProviderAnthropic Provider = "anthropic"
)

// ModelDescriptor is pure catalog data for one model.
// Label is the provider's exact model id string, used verbatim in API calls.
type ModelDescriptor struct {
	Label       string   `json:"label"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Logo        string   `json:"logo"`
	Provider    Provider `json:"provider"`
}

// Models is the full catalog in display order. Model lists churn across
// provider generations; membership here is the only contract.
var Models = []ModelDescriptor{
	{Label: "gpt-5.2", DisplayName: "GPT-5.2", Description: "Flagship model for complex tasks", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gpt-5.2-pro", DisplayName: "GPT-5.2 Pro", Description: "Extended reasoning for the hardest problems", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gpt-5-mini", DisplayName: "GPT-5 mini", Description: "Fast, cost-efficient general model", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gpt-5-nano", DisplayName: "GPT-5 nano", Description: "Cheapest model for summaries and titles", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gpt-4.1-mini", DisplayName: "GPT-4.1 mini", Description: "Previous-generation fast model", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gpt-4o", DisplayName: "GPT-4o", Description: "Previous-generation multimodal model", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "chatgpt-4o-latest", DisplayName: "ChatGPT-4o", Description: "GPT-4o as tuned for ChatGPT", Logo: "openai.svg", Provider: ProviderOpenAI},
	{Label: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", Description: "Fast multimodal model", Logo: "gemini.svg", Provider: ProviderGemini},
	{Label: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", Description: "Strong reasoning multimodal model", Logo: "gemini.svg", Provider: ProviderGemini},
	{Label: "claude-sonnet-4-5", DisplayName: "Claude Sonnet 4.5", Description: "Coming soon", Logo: "anthropic.svg", Provider: ProviderAnthropic},
}

var byLabel = func() map[string]ModelDescriptor {
	m := make(map[string]ModelDescriptor, len(Models))
	for _, d := range Models {
		m[d.Label] = d
	}
	return m
}()

// Lookup returns the descriptor for a model label.
func Lookup(label string) (ModelDescriptor, bool) {
	d, ok := byLabel[label]
	return d, ok
}

// ProviderFor returns the provider serving a model label.
func ProviderFor(label string) (Provider, bool) {
	d, ok := byLabel[label]
	return d.Provider, ok
}
