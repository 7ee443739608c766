package sync

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/spacecore/spacecore/pkg/errors"
)

// maxSyncMessageSize bounds a single framed sync message. The framing is
// the pairing protocol's, but the cap is larger than pairing's 1 MiB.
const maxSyncMessageSize = 1 << 24 // 16 MiB, large enough for a backfill page

// syncMessageType discriminates wireEnvelope's payload.
type syncMessageType string

const (
	syncMsgBackfillPage syncMessageType = "backfill_page"
	syncMsgLiveEvent    syncMessageType = "live_event"
	syncMsgAck          syncMessageType = "ack"
)

// wireEnvelope is the single msgpack envelope every sync message travels
// in over a live peer connection, framed with a 4-byte big-endian length
// prefix ahead of the encoded bytes.
type wireEnvelope struct {
	Type         syncMessageType `msgpack:"type"`
	ResourceType string          `msgpack:"resource_type,omitempty"`
	Rows         []byte          `msgpack:"rows,omitempty"`
	Final        bool            `msgpack:"final,omitempty"`

	Watermark string `msgpack:"watermark,omitempty"`
	Signature []byte `msgpack:"signature,omitempty"`
	Payload   []byte `msgpack:"payload,omitempty"`
}

// ConnTransport sends backfill pages and live events to one peer over an
// already-authenticated net.Conn (the connection a daemon's connection
// manager keeps open to a paired device after pairing completes).
type ConnTransport struct {
	conn    net.Conn
	timeout time.Duration
}

// NewConnTransport wraps conn for framed sync message delivery, each
// write bounded by timeout.
func NewConnTransport(conn net.Conn, timeout time.Duration) *ConnTransport {
	return &ConnTransport{conn: conn, timeout: timeout}
}

// SendBackfillPage implements BackfillSender.
func (t *ConnTransport) SendBackfillPage(ctx context.Context, peerDeviceUUID, resourceType string, rows []byte, final bool) error {
	return t.send(wireEnvelope{Type: syncMsgBackfillPage, ResourceType: resourceType, Rows: rows, Final: final})
}

// SendLiveEvent implements LiveEventSender: delivers one signed, watermark-
// ordered mutation payload to the peer.
func (t *ConnTransport) SendLiveEvent(ctx context.Context, peerDeviceUUID string, watermark Watermark, payload, signature []byte) error {
	return t.send(wireEnvelope{Type: syncMsgLiveEvent, Watermark: watermark.String(), Payload: payload, Signature: signature})
}

func (t *ConnTransport) send(env wireEnvelope) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return errors.IOError("failed to set sync write deadline", "", true)
	}
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return errors.Internal("failed to encode sync message").Wrap(err)
	}
	return writeFramed(t.conn, data)
}

// Receive reads and decodes the next framed sync message from conn.
func Receive(conn net.Conn, timeout time.Duration) (syncMessageType, wireEnvelope, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", wireEnvelope{}, errors.IOError("failed to set sync read deadline", "", true)
	}
	data, err := readFramed(conn)
	if err != nil {
		return "", wireEnvelope{}, err
	}
	var env wireEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return "", wireEnvelope{}, errors.Protocol("malformed sync message")
	}
	return env.Type, env, nil
}

func writeFramed(conn net.Conn, payload []byte) error {
	if len(payload) > maxSyncMessageSize {
		return errors.Protocol("sync message exceeds the 16 MiB size limit")
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		return errors.IOError("failed to write sync message length", "", true)
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.IOError("failed to write sync message body", "", true)
	}
	return nil
}

func readFramed(conn net.Conn) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, errors.IOError("failed to read sync message length", "", true)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxSyncMessageSize {
		return nil, errors.Protocol("sync message exceeds the 16 MiB size limit")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, errors.IOError("failed to read sync message body", "", true)
	}
	return buf, nil
}
