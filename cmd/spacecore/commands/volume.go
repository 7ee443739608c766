package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Inspect mounted volumes",
}

var volumeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mounted volumes on this device",
	RunE:  runVolumeList,
}

func init() {
	volumeCmd.AddCommand(volumeListCmd)
}

type volumeResponse struct {
	Fingerprint    string `json:"fingerprint"`
	Name           string `json:"name"`
	MountPoint     string `json:"mount_point"`
	TotalBytes     uint64 `json:"total_bytes"`
	AvailableBytes uint64 `json:"available_bytes"`
}

type volumeListData []volumeResponse

func (d volumeListData) Headers() []string { return []string{"NAME", "MOUNT POINT", "TOTAL", "AVAILABLE"} }
func (d volumeListData) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, v := range d {
		rows = append(rows, []string{
			v.Name, v.MountPoint,
			humanize.Bytes(v.TotalBytes),
			humanize.Bytes(v.AvailableBytes),
		})
	}
	return rows
}

func runVolumeList(cmd *cobra.Command, args []string) error {
	var resp volumeListData
	if err := newClient().Call("query:volumes.list.input.v1", "", struct{}{}, &resp); err != nil {
		return err
	}
	return printOutput(resp, len(resp) == 0, "No mounted volumes found.", resp)
}
