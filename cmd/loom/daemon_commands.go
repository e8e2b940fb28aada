package main

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/ipc"
	"loom/internal/queue"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the loom daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if resp.Started {
					fmt.Fprintln(stdout, "Daemon started")
				} else {
					fmt.Fprintln(stdout, resp.Message)
				}
				return nil
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := launchDaemon(ctx); err != nil {
				return err
			}
			client, err := waitForSocket(ctx, 10*time.Second)
			if err != nil {
				return err
			}
			defer client.Close()
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the loom daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			defer client.Close()
			if _, err := client.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, renderSectionHeader("Daemon", colorize))
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
				return nil
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, renderSectionHeader("Daemon", colorize))
			if status.Running {
				fmt.Fprintln(stdout, renderStatusLine("Workflow", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Workflow", statusWarn, "stopped", colorize))
			}
			if status.LastError != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
			}
			if status.LastJob != nil {
				detail := fmt.Sprintf("%s (%s, %d%%)", status.LastJob.SessionID, status.LastJob.Status, status.LastJob.Progress)
				fmt.Fprintln(stdout, renderStatusLine("Last job", statusInfo, detail, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))

			if len(status.StageHealth) > 0 {
				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, renderSectionHeader("Stages", colorize))
				for _, health := range status.StageHealth {
					if health.Ready {
						fmt.Fprintln(stdout, renderStatusLine(health.Name, statusOK, "ready", colorize))
					} else {
						fmt.Fprintln(stdout, renderStatusLine(health.Name, statusError, health.Detail, colorize))
					}
				}
			}

			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, renderSectionHeader("Queue", colorize))
			rows := buildQueueStatusRows(status.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func launchDaemon(ctx *commandContext) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := []string{"daemon"}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			args = append(args, "--socket", socket)
		}
	}
	if ctx.configFlag != nil {
		if cfgPath := strings.TrimSpace(*ctx.configFlag); cfgPath != "" {
			args = append(args, "--config", cfgPath)
		}
	}

	proc := exec.Command(exe, args...)
	proc.Stdout = nil
	proc.Stderr = nil
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

func waitForSocket(ctx *commandContext, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		client, err := ctx.dialClient()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not become ready within %s", timeout)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

var queueStatusOrder = []queue.Status{
	queue.StatusPending,
	queue.StatusProcessing,
	queue.StatusCompleted,
	queue.StatusFailed,
	queue.StatusCancelled,
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(queueStatusOrder))
	total := 0
	for _, status := range queueStatusOrder {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		total += count
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	if total == 0 {
		return nil
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	return rows
}
