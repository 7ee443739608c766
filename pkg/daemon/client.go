package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Client is a thin synchronous wrapper the CLI uses to send one request
// and read its matching response over a fresh connection per call.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient constructs a Client that dials socketPath for every Call.
func NewClient(socketPath string, timeout time.Duration) *Client {
	return &Client{socketPath: socketPath, timeout: timeout}
}

// Call sends one request and decodes its response's Result into out. out
// may be nil when the caller doesn't need the result.
func (c *Client) Call(method, libraryID string, params, out any) error {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s (is it running?): %w", c.socketPath, err)
	}
	defer conn.Close()

	if c.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}

	req := Request{ID: "1", Method: method, LibraryID: libraryID, Params: rawParams}
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		return errors.IOError("daemon closed the connection without a response", "", true)
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return &errors.Error{Code: codeFromWire(resp.Error.Code), Message: resp.Error.Message, Resource: resp.Error.Resource, Retryable: resp.Error.Retryable}
	}
	if out != nil && len(resp.Result) > 0 {
		return json.Unmarshal(resp.Result, out)
	}
	return nil
}

// Subscribe opens a dedicated long-lived connection and streams events
// into handle until the connection closes or handle returns an error,
// which Subscribe then returns. It blocks for the life of the stream.
func (c *Client) Subscribe(handle func(raw json.RawMessage) error) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s (is it running?): %w", c.socketPath, err)
	}
	defer conn.Close()

	req := Request{ID: "sub", Method: subscribeMethod}
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		return errors.IOError("daemon closed the connection before acknowledging subscription", "", true)
	}

	for scanner.Scan() {
		var line EventLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if err := handle(line.Event); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func codeFromWire(code string) errors.Code {
	for c := errors.ErrNotFound; c <= errors.ErrInternal; c++ {
		if c.String() == code {
			return c
		}
	}
	return errors.ErrInternal
}
