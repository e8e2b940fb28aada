// Package insight provides an OpenRouter chat client for session enrichment.
// The enrichment stages use this client to turn recorded session material
// (transcripts, activity timelines) into structured review artifacts.
//
// # Requests
//
// Each stage method sends the session material to a configured model with a
// structured prompt requesting JSON output and parses the typed result:
//
//   - ReviewAudio: transcript in, highlights/sentiment/notes out.
//   - ChapterVideo: activity timeline in, ordered chapter list out.
//   - Summarize: transcript plus notes in, title/overview/key points out.
//   - ComposeCanvas: prior stage artifacts in, titled section layout out.
//
// # Configuration
//
// Requires api_key (OpenRouter key) and model, and optionally base_url,
// referer, title, and timeout. HealthCheck verifies the key and model with a
// minimal request before the daemon starts accepting work.
package insight
