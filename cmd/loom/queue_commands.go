package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/api"
	"loom/internal/ipc"
	"loom/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the enrichment queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enrichment jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateStatusFilter(listStatuses); err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList(listStatuses)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Session", "Status", "Priority", "Progress", "Attempts", "Created"},
					buildQueueListRows(resp.Jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status (pending, processing, completed, failed, cancelled)")
	return cmd
}

func validateStatusFilter(values []string) error {
	for _, value := range values {
		if _, ok := queue.ParseStatus(value); !ok {
			known := make([]string, 0, len(queue.AllStatuses()))
			for _, status := range queue.AllStatuses() {
				known = append(known, string(status))
			}
			return fmt.Errorf("unknown status %q (valid: %s)", value, strings.Join(known, ", "))
		}
	}
	return nil
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueStatus()
				if err != nil {
					return err
				}
				summary := resp.Summary
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := buildQueueSummaryRows(summary)
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueDescribe(args[0])
				if err != nil {
					return err
				}
				printJobDetails(cmd, resp.Job)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id>",
		Short: "Remove a job from the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRemove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No job with id %s\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Job removed")
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed, failed, and cancelled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", resp.Removed)
				return nil
			})
		},
	}
}

func buildQueueListRows(jobs []ipc.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		session := job.SessionName
		if session == "" {
			session = job.SessionID
		}
		rows = append(rows, []string{
			job.ID,
			session,
			job.Status,
			job.Priority,
			fmt.Sprintf("%d%%", job.Progress),
			fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
			job.CreatedAt,
		})
	}
	return rows
}

func buildQueueSummaryRows(summary api.QueueSummary) [][]string {
	rows := make([][]string, 0, 6)
	appendRow := func(label string, count int) {
		if count > 0 {
			rows = append(rows, []string{label, strconv.Itoa(count)})
		}
	}
	appendRow("pending", summary.Pending)
	appendRow("processing", summary.Processing)
	appendRow("completed", summary.Completed)
	appendRow("failed", summary.Failed)
	appendRow("cancelled", summary.Cancelled)
	rows = append(rows, []string{"total", strconv.Itoa(summary.Total)})
	return rows
}

func printJobDetails(cmd *cobra.Command, job ipc.JobView) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "ID:           %s\n", job.ID)
	fmt.Fprintf(stdout, "Session:      %s\n", job.SessionID)
	if job.SessionName != "" {
		fmt.Fprintf(stdout, "Session name: %s\n", job.SessionName)
	}
	fmt.Fprintf(stdout, "Status:       %s\n", job.Status)
	fmt.Fprintf(stdout, "Priority:     %s\n", job.Priority)
	fmt.Fprintf(stdout, "Progress:     %d%%\n", job.Progress)
	if job.Stage != "" {
		fmt.Fprintf(stdout, "Stage:        %s\n", job.Stage)
	}
	fmt.Fprintf(stdout, "Stages:       %s\n", describeOptions(job.Options))
	fmt.Fprintf(stdout, "Attempts:     %d/%d\n", job.Attempts, job.MaxAttempts)
	if job.ErrorMessage != "" {
		fmt.Fprintf(stdout, "Error:        %s\n", job.ErrorMessage)
	}
	if job.NotBefore != "" {
		fmt.Fprintf(stdout, "Not before:   %s\n", job.NotBefore)
	}
	fmt.Fprintf(stdout, "Created:      %s\n", job.CreatedAt)
	fmt.Fprintf(stdout, "Updated:      %s\n", job.UpdatedAt)
	if job.CompletedAt != "" {
		fmt.Fprintf(stdout, "Completed:    %s\n", job.CompletedAt)
	}
}

func describeOptions(opts api.OptionsView) string {
	enabled := make([]string, 0, 4)
	if opts.AudioReview {
		enabled = append(enabled, "audio")
	}
	if opts.VideoChapters {
		enabled = append(enabled, "video")
	}
	if opts.Summary {
		enabled = append(enabled, "summary")
	}
	if opts.Canvas {
		enabled = append(enabled, "canvas")
	}
	if len(enabled) == 0 {
		return "none"
	}
	text := strings.Join(enabled, ", ")
	if opts.ForceRegenerate {
		text += " (force)"
	}
	return text
}
