package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Manage scheduled jobs",
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active jobs",
	RunE:  runJobList,
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a single job's status and progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobStatus,
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running or paused job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobCancel,
}

var jobPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause a running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobPause,
}

var jobMonitorInterval time.Duration

var jobMonitorCmd = &cobra.Command{
	Use:   "monitor <job-id>",
	Short: "Poll a job's status until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobMonitor,
}

func init() {
	jobMonitorCmd.Flags().DurationVar(&jobMonitorInterval, "interval", time.Second, "Polling interval")

	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobCancelCmd)
	jobCmd.AddCommand(jobPauseCmd)
	jobCmd.AddCommand(jobMonitorCmd)
}

type jobIDRequest struct {
	JobID string `json:"job_id"`
}

type jobResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

type jobListData []jobResponse

func (d jobListData) Headers() []string { return []string{"ID", "NAME", "STATUS", "PROGRESS", "ERROR"} }
func (d jobListData) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, j := range d {
		rows = append(rows, []string{j.ID, j.Name, j.Status, fmt.Sprintf("%.0f%%", j.Progress*100), j.Error})
	}
	return rows
}

func runJobList(cmd *cobra.Command, args []string) error {
	var resp jobListData
	if err := newClient().Call("query:jobs.list.input.v1", "", struct{}{}, &resp); err != nil {
		return err
	}
	return printOutput(resp, len(resp) == 0, "No active jobs.", resp)
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	var resp jobResponse
	if err := newClient().Call("query:jobs.status.input.v1", "", jobIDRequest{JobID: args[0]}, &resp); err != nil {
		return err
	}
	data := jobListData{resp}
	return printOutput(data, false, "", data)
}

func runJobCancel(cmd *cobra.Command, args []string) error {
	if err := newClient().Call("action:jobs.cancel.input.v1", "", jobIDRequest{JobID: args[0]}, nil); err != nil {
		return err
	}
	printSuccess("Job canceled")
	return nil
}

func runJobPause(cmd *cobra.Command, args []string) error {
	if err := newClient().Call("action:jobs.pause.input.v1", "", jobIDRequest{JobID: args[0]}, nil); err != nil {
		return err
	}
	printSuccess("Job paused")
	return nil
}

func runJobMonitor(cmd *cobra.Command, args []string) error {
	client := newClient()
	for {
		var resp jobResponse
		if err := client.Call("query:jobs.status.input.v1", "", jobIDRequest{JobID: args[0]}, &resp); err != nil {
			return err
		}
		fmt.Printf("\r%-10s %3.0f%% %s", resp.Status, resp.Progress*100, resp.Name)
		switch resp.Status {
		case "completed", "failed", "canceled":
			fmt.Println()
			if resp.Error != "" {
				return fmt.Errorf("job %s: %s", resp.Status, resp.Error)
			}
			return nil
		}
		time.Sleep(jobMonitorInterval)
	}
}
