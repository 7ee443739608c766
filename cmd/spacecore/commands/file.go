package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "File operations across devices",
}

var (
	copyOverwrite  bool
	copyVerify     bool
	copyPreserve   bool
	copyMove       bool
)

var fileCopyCmd = &cobra.Command{
	Use:   "copy <source>... <destination>",
	Short: "Copy or move one or more files by content or physical path",
	Long: `Copy (or, with --move, move) one or more files to a destination.

Each source/destination is either a physical path "device:/path" or a
content reference "content:<content-id>". A bare path with no "device:"
or "content:" prefix is resolved against the local device.

Examples:
  spacecore file copy laptop:/docs/report.pdf desktop:/backup/
  spacecore file copy content:abcd1234 desktop:/restore/report.pdf
  spacecore file copy --move laptop:/tmp/draft.md laptop:/final/draft.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFileCopy,
}

func init() {
	fileCopyCmd.Flags().BoolVar(&copyOverwrite, "overwrite", false, "Overwrite an existing destination")
	fileCopyCmd.Flags().BoolVar(&copyVerify, "verify", false, "Verify checksums after copying")
	fileCopyCmd.Flags().BoolVar(&copyPreserve, "preserve-timestamps", false, "Preserve source modification times")
	fileCopyCmd.Flags().BoolVar(&copyMove, "move", false, "Move instead of copy (deletes sources after success)")

	fileCmd.AddCommand(fileCopyCmd)
}

type sdPathRequest struct {
	DeviceID  string `json:"device_id,omitempty"`
	Path      string `json:"path,omitempty"`
	ContentID string `json:"content_id,omitempty"`
}

func parseSdPathArg(arg string) sdPathRequest {
	if rest, ok := strings.CutPrefix(arg, "content:"); ok {
		return sdPathRequest{ContentID: rest}
	}
	if deviceID, path, ok := strings.Cut(arg, ":"); ok {
		return sdPathRequest{DeviceID: deviceID, Path: path}
	}
	return sdPathRequest{Path: arg}
}

type fileCopyRequest struct {
	Sources            []sdPathRequest `json:"sources"`
	Destination        sdPathRequest   `json:"destination"`
	Overwrite          bool            `json:"overwrite"`
	VerifyChecksum     bool            `json:"verify_checksum"`
	PreserveTimestamps bool            `json:"preserve_timestamps"`
	Move               bool            `json:"move"`
}

func runFileCopy(cmd *cobra.Command, args []string) error {
	destArg := args[len(args)-1]
	sourceArgs := args[:len(args)-1]

	sources := make([]sdPathRequest, 0, len(sourceArgs))
	for _, a := range sourceArgs {
		sources = append(sources, parseSdPathArg(a))
	}

	req := fileCopyRequest{
		Sources:            sources,
		Destination:        parseSdPathArg(destArg),
		Overwrite:          copyOverwrite,
		VerifyChecksum:     copyVerify,
		PreserveTimestamps: copyPreserve,
		Move:               copyMove,
	}

	var resp jobSubmittedResponse
	if err := newClient().Call("action:files.copy.input.v1", "", req, &resp); err != nil {
		return err
	}

	verb := "Copy"
	progressVerb := "copying"
	if copyMove {
		verb = "Move"
		progressVerb = "moving"
	}
	if Flags.Watch {
		return watchJob(resp.JobID, progressVerb+" to "+destArg)
	}
	printSuccess(fmt.Sprintf("%s job submitted: %s", verb, resp.JobID))
	return nil
}
