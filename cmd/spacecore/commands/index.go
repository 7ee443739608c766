package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index registered locations",
}

var indexLocationCmd = &cobra.Command{
	Use:   "location <uuid>",
	Short: "Run a full index over a registered location",
	Long: `Run a full index over a registered location: walks the tree, honors
.gitignore rules, and content-addresses every file.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexLocation,
}

var indexQuickScanCmd = &cobra.Command{
	Use:   "quick-scan <uuid>",
	Short: "Quickly scan a location without content identification",
	Long: `Walk a registered location and record size/mtime metadata without
computing content hashes, for a fast initial pass over a large tree.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexQuickScan,
}

func init() {
	indexCmd.AddCommand(indexLocationCmd)
	indexCmd.AddCommand(indexQuickScanCmd)
}

type indexLocationRequest struct {
	LocationUUID string `json:"location_uuid"`
}

type jobSubmittedResponse struct {
	JobID string `json:"job_id"`
}

func runIndexLocation(cmd *cobra.Command, args []string) error {
	var resp jobSubmittedResponse
	if err := newClient().Call("action:index.location.input.v1", "", indexLocationRequest{LocationUUID: args[0]}, &resp); err != nil {
		return err
	}
	if Flags.Watch {
		return watchJob(resp.JobID, "indexing "+args[0])
	}
	printSuccess(fmt.Sprintf("Index job submitted: %s", resp.JobID))
	return nil
}

func runIndexQuickScan(cmd *cobra.Command, args []string) error {
	var resp jobSubmittedResponse
	if err := newClient().Call("action:index.quick_scan.input.v1", "", indexLocationRequest{LocationUUID: args[0]}, &resp); err != nil {
		return err
	}
	if Flags.Watch {
		return watchJob(resp.JobID, "quick-scanning "+args[0])
	}
	printSuccess(fmt.Sprintf("Quick scan job submitted: %s", resp.JobID))
	return nil
}
