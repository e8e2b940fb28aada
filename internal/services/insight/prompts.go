package insight

// Prompts sent to the configured insight model. Update this text centrally so
// every call stays in sync with the artifact schemas.

const audioReviewPrompt = `You are an assistant reviewing the audio transcript of a recorded work session.

Identify the spoken highlights, the overall sentiment, and any follow-up notes.

You must respond ONLY with a JSON object like:
{"highlights": ["short quote or moment"], "sentiment": "positive|neutral|negative", "notes": "short free-form observations"}

Now review this transcript:`

const videoChaptersPrompt = `You are an assistant segmenting the timeline of a recorded work session into chapters.

The input lists timestamped activity events. Group them into a small number of coherent chapters.

You must respond ONLY with a JSON object like:
{"chapters": [{"title": "short name", "start_seconds": 0, "end_seconds": 120, "description": "what happens"}]}

Chapters must not overlap and must appear in chronological order.

Now segment this timeline:`

const summaryPrompt = `You are an assistant summarizing a recorded work session.

The input contains the session transcript and activity notes. Produce a concise narrative summary.

You must respond ONLY with a JSON object like:
{"title": "short session title", "overview": "one paragraph", "key_points": ["notable point"]}

Now summarize this session:`

const canvasPrompt = `You are an assistant composing a review canvas for a recorded work session.

The input contains the session's summary, audio review, and chapter breakdown. Lay them out as a document with titled sections.

You must respond ONLY with a JSON object like:
{"title": "canvas title", "sections": [{"heading": "section heading", "body": "markdown body"}]}

Now compose the canvas from this material:`
