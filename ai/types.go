package ai

import (
	"github.com/spike-land/spike/ai/openai"
)

// Provider identifies the LLM provider
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderClaude  Provider = "claude"
	ProviderGemini  Provider = "gemini"
	ProviderOllama  Provider = "ollama"
	ProviderZAi     Provider = "zai"
	ProviderMistral Provider = "mistral"
)

// ProviderCapability represents provider-level features
type ProviderCapability string

const (
	ProviderCapabilityEmbedding ProviderCapability = "embeddings"
)

// Type aliases to openai types
type Message = openai.Message
type ChatCompletionRequest = openai.ChatCompletionRequest
type ChatCompletionResponse = openai.ChatCompletionResponse
type Tool = openai.Tool
type ToolCall = openai.ToolCall
type ToolFunction = openai.ToolFunction
type EmbeddingRequest = openai.EmbeddingRequest
type EmbeddingResponse = openai.EmbeddingResponse
type Usage = openai.Usage
type ContentPart = openai.ContentPart
type ImageURL = openai.ImageURL
type Embedding = openai.Embedding
type ChatStream = openai.ChatStream
type ModelsResponse = openai.ModelsResponse
type Model = openai.Model
type ToolCallFunction = openai.ToolCallFunction
type Choice = openai.Choice
type Delta = openai.Delta
type DeltaToolCall = openai.DeltaToolCall
type DeltaFunction = openai.DeltaFunction

// NewChatStream wraps openai.NewChatStream.
var NewChatStream = openai.NewChatStream
