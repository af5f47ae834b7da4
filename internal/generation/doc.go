// Package generation provides the interface workers use to turn prompts
// into text, plus a mock implementation that simulates model latency. The
// real LLM integration (Gemini) lives under internal/platform/gemini.
package generation
