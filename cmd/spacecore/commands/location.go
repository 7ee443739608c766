package commands

import (
	"fmt"

	"github.com/spacecore/spacecore/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Manage indexed locations",
}

var locationAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a directory as a new indexed location",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocationAdd,
}

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered locations",
	RunE:  runLocationList,
}

var (
	locationRemoveForce bool
)

var locationRemoveCmd = &cobra.Command{
	Use:   "remove <uuid>",
	Short: "Remove a registered location",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocationRemove,
}

func init() {
	locationRemoveCmd.Flags().BoolVarP(&locationRemoveForce, "force", "f", false, "Skip confirmation prompt")

	locationCmd.AddCommand(locationAddCmd)
	locationCmd.AddCommand(locationListCmd)
	locationCmd.AddCommand(locationRemoveCmd)
}

type locationAddRequest struct {
	Path string `json:"path"`
}

type locationResponse struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type locationListData []locationResponse

func (d locationListData) Headers() []string { return []string{"UUID", "PATH"} }
func (d locationListData) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, l := range d {
		rows = append(rows, []string{l.UUID, l.Name})
	}
	return rows
}

func runLocationAdd(cmd *cobra.Command, args []string) error {
	var resp locationResponse
	if err := newClient().Call("action:locations.add.input.v1", "", locationAddRequest{Path: args[0]}, &resp); err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Location %s registered (%s)", resp.Name, resp.UUID))
	return nil
}

func runLocationList(cmd *cobra.Command, args []string) error {
	var resp locationListData
	if err := newClient().Call("query:locations.list.input.v1", "", struct{}{}, &resp); err != nil {
		return err
	}
	return printOutput(resp, len(resp) == 0, "No locations registered.", resp)
}

type locationRemoveRequest struct {
	UUID string `json:"uuid"`
}

func runLocationRemove(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove location %s?", args[0]), locationRemoveForce)
	if err != nil || !ok {
		return err
	}
	if err := newClient().Call("action:locations.remove.input.v1", "", locationRemoveRequest{UUID: args[0]}, nil); err != nil {
		return err
	}
	printSuccess("Location removed")
	return nil
}
