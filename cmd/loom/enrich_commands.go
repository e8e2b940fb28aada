package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/ipc"
	"loom/internal/queue"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionName string
		priority    string
		skipAudio   bool
		skipVideo   bool
		skipSummary bool
		skipCanvas  bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "enqueue <session-id>",
		Short: "Queue a recorded session for enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := strings.TrimSpace(args[0])
			if sessionID == "" {
				return errors.New("session id is required")
			}
			if priority != "" {
				if _, ok := queue.ParsePriority(priority); !ok {
					return fmt.Errorf("invalid priority %q (use low, normal, or high)", priority)
				}
			}

			opts := defaultOptions(ctx)
			if skipAudio {
				opts.AudioReview = false
			}
			if skipVideo {
				opts.VideoChapters = false
			}
			if skipSummary {
				opts.Summary = false
			}
			if skipCanvas {
				opts.Canvas = false
			}
			opts.ForceRegenerate = force
			if !opts.AudioReview && !opts.VideoChapters && !opts.Summary && !opts.Canvas {
				return errors.New("all stages are skipped; enable at least one")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enqueue(ipc.EnqueueRequest{
					SessionID:   sessionID,
					SessionName: sessionName,
					Priority:    priority,
					Options:     opts,
				})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Created {
					fmt.Fprintf(stdout, "Session %s already queued as job %s (%s)\n", sessionID, resp.Job.ID, resp.Job.Status)
					return nil
				}
				fmt.Fprintf(stdout, "Queued session %s as job %s\n", sessionID, resp.Job.ID)
				fmt.Fprintf(stdout, "Stages: %s\n", describeOptions(resp.Job.Options))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionName, "name", "", "Human readable session name")
	cmd.Flags().StringVar(&priority, "priority", "", "Job priority (low, normal, high)")
	cmd.Flags().BoolVar(&skipAudio, "skip-audio", false, "Skip the audio review stage")
	cmd.Flags().BoolVar(&skipVideo, "skip-video", false, "Skip the video chapters stage")
	cmd.Flags().BoolVar(&skipSummary, "skip-summary", false, "Skip the summary stage")
	cmd.Flags().BoolVar(&skipCanvas, "skip-canvas", false, "Skip the canvas stage")
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate artifacts even when they already exist")

	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id|session-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Requested {
					fmt.Fprintln(stdout, "Cancellation requested; the job stops at the next stage boundary")
					return nil
				}
				fmt.Fprintln(stdout, "Job cancelled")
				return nil
			})
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id|session-id>",
		Short: "Return a failed job to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s returned to queue\n", resp.Job.ID)
				return nil
			})
		},
	}
}

// defaultOptions seeds stage toggles from configuration so skip flags subtract
// from the configured set.
func defaultOptions(ctx *commandContext) api.OptionsView {
	cfg := ctx.configValue()
	if cfg == nil {
		return api.OptionsView{AudioReview: true, VideoChapters: true, Summary: true, Canvas: true}
	}
	return api.OptionsView{
		AudioReview:   cfg.Enrichment.AudioReview,
		VideoChapters: cfg.Enrichment.VideoChapters,
		Summary:       cfg.Enrichment.Summary,
		Canvas:        cfg.Enrichment.Canvas,
	}
}
