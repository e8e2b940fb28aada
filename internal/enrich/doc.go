// Package enrich implements the per-session enrichment pipeline.
//
// A session directory produced by the capture application holds the raw
// inputs (transcript.txt, timeline.log). The pipeline runs up to four stages
// against them, each writing one JSON artifact into the session's enrichment
// directory:
//
//	audio review  -> audio_review.json
//	video chapters -> chapters.json
//	summary       -> summary.json
//	canvas        -> canvas.json
//
// Stages run in a fixed order, skip work whose artifact already exists unless
// the job requests regeneration, and report cumulative progress weighted by
// stage cost. Between stages the pipeline consults the job's cancellation
// flag and stops with ErrCancelled when a request is pending, leaving the
// artifacts written so far on disk.
package enrich
