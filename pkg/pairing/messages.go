package pairing

import (
	"net"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/spacecore/spacecore/pkg/errors"
)

// messageType discriminates the wire envelope's payload.
type messageType string

const (
	msgChallenge             messageType = "challenge"
	msgChallengeResponse     messageType = "challenge_response"
	msgChallengeConfirmation messageType = "challenge_confirmation"
	msgDeviceInfo            messageType = "device_info"
	msgSessionKeyExchange    messageType = "session_key_exchange"
	msgPairingComplete       messageType = "pairing_complete"
	msgPairingError          messageType = "pairing_error"
)

// wireMessage is the single envelope every pairing message travels in,
// msgpack-encoded and framed with a 4-byte length prefix. Exactly one
// payload field is populated per Type.
type wireMessage struct {
	Type messageType `msgpack:"type"`

	Nonce            []byte    `msgpack:"nonce,omitempty"`
	ResponseHash     []byte    `msgpack:"response_hash,omitempty"`
	ConfirmationHash []byte    `msgpack:"confirmation_hash,omitempty"`
	Timestamp        time.Time `msgpack:"timestamp,omitempty"`

	DeviceID  string `msgpack:"device_id,omitempty"`
	Name      string `msgpack:"name,omitempty"`
	PublicKey []byte `msgpack:"public_key,omitempty"`
	Signature []byte `msgpack:"signature,omitempty"`

	EphemeralPublicKey []byte `msgpack:"ephemeral_public_key,omitempty"`

	Error string `msgpack:"error,omitempty"`
}

// DeviceInfo is the identity one side of a pairing exchange presents to
// the other: who it is, and the public key future signatures and sync
// messages from it should be checked against.
type DeviceInfo struct {
	DeviceID  string
	Name      string
	PublicKey []byte
}

func sendMessage(conn net.Conn, deadline time.Time, msg wireMessage) error {
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return errors.IOError("failed to set pairing write deadline", "", true)
	}
	data, err := msgpack.Marshal(&msg)
	if err != nil {
		return errors.Internal("failed to encode pairing message").Wrap(err)
	}
	return writeFramed(conn, data)
}

func receiveMessage(conn net.Conn, deadline time.Time) (wireMessage, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return wireMessage{}, errors.IOError("failed to set pairing read deadline", "", true)
	}
	data, err := readFramed(conn)
	if err != nil {
		return wireMessage{}, err
	}
	var msg wireMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return wireMessage{}, errors.Protocol("malformed pairing message")
	}
	return msg, nil
}

func expectType(msg wireMessage, want messageType) error {
	if msg.Type == msgPairingError {
		return errors.Protocol("peer reported pairing error: " + msg.Error)
	}
	if msg.Type != want {
		return errors.Protocol("expected pairing message " + string(want) + ", got " + string(msg.Type))
	}
	return nil
}
