package commands

import (
	"fmt"
	"strings"

	"github.com/spacecore/spacecore/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage paired devices",
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known devices",
	RunE:  runDeviceList,
}

var devicePairTimeout int

var devicePairCmd = &cobra.Command{
	Use:   "pair [address]",
	Short: "Pair with another device",
	Long: `Pair with another spacecore device using a six-word code.

Run with no arguments to host a pairing session and display the code for
the other device to type in. Run with an address to join a session
someone else is hosting, then enter the code when prompted.

Examples:
  # Host a pairing session on this device
  spacecore device pair

  # Join a session hosted at 192.168.1.20:48100
  spacecore device pair 192.168.1.20:48100`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDevicePair,
}

var deviceUnpairForce bool

var deviceUnpairCmd = &cobra.Command{
	Use:   "unpair <device-id>",
	Short: "Unpair a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeviceUnpair,
}

func init() {
	devicePairCmd.Flags().IntVar(&devicePairTimeout, "timeout", 120, "Seconds to wait for the handshake before giving up")
	deviceUnpairCmd.Flags().BoolVarP(&deviceUnpairForce, "force", "f", false, "Skip confirmation prompt")

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(devicePairCmd)
	deviceCmd.AddCommand(deviceUnpairCmd)
}

type deviceResponse struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	IsLocal  bool   `json:"is_local"`
	Online   bool   `json:"online"`
	PairedAt string `json:"paired_at,omitempty"`
}

type deviceListData []deviceResponse

func (d deviceListData) Headers() []string { return []string{"UUID", "NAME", "LOCAL", "ONLINE", "PAIRED AT"} }
func (d deviceListData) Rows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, dev := range d {
		rows = append(rows, []string{dev.UUID, dev.Name, boolMark(dev.IsLocal), boolMark(dev.Online), dev.PairedAt})
	}
	return rows
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	var resp deviceListData
	if err := newClient().Call("query:devices.list.input.v1", "", struct{}{}, &resp); err != nil {
		return err
	}
	return printOutput(resp, len(resp) == 0, "No known devices.", resp)
}

type devicePairHostRequest struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

type devicePairJoinRequest struct {
	Address string   `json:"address"`
	Words   []string `json:"words"`
}

type devicePairedResponse struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

func runDevicePair(cmd *cobra.Command, args []string) error {
	var resp devicePairedResponse

	if len(args) == 0 {
		fmt.Println("Hosting pairing session, waiting for another device to join...")
		if err := newClient().Call("action:devices.pair.host.input.v1", "", devicePairHostRequest{TimeoutSeconds: devicePairTimeout}, &resp); err != nil {
			return err
		}
	} else {
		code, err := prompt.InputRequired("Enter the six-word pairing code shown on the other device")
		if err != nil {
			return err
		}
		words := strings.Fields(code)
		if err := newClient().Call("action:devices.pair.join.input.v1", "", devicePairJoinRequest{Address: args[0], Words: words}, &resp); err != nil {
			return err
		}
	}

	printSuccess(fmt.Sprintf("Paired with %s (%s)", resp.Name, resp.DeviceID))
	return nil
}

type deviceUnpairRequest struct {
	DeviceID string `json:"device_id"`
}

func runDeviceUnpair(cmd *cobra.Command, args []string) error {
	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Unpair device %s?", args[0]), deviceUnpairForce)
	if err != nil || !ok {
		return err
	}
	if err := newClient().Call("action:devices.unpair.input.v1", "", deviceUnpairRequest{DeviceID: args[0]}, nil); err != nil {
		return err
	}
	printSuccess("Device unpaired")
	return nil
}
