// Package pairing implements the six-word-code pairing handshake that
// introduces two spacecore devices to each other: transport (pairing.go,
// transport.go), the code itself (code.go), the wire protocol and session
// state machine (messages.go, session.go), session-key derivation
// (keys.go), and encrypted on-disk key storage (keystore.go).
package pairing

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/spacecore/spacecore/internal/telemetry"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/store"
)

// Advertiser broadcasts this device's pairing availability on the local
// network so a joiner can discover (host, port) without the user typing an
// address. No concrete implementation ships: the retrieval pack carries no
// mDNS/zeroconf library, and fabricating one would be worse than leaving
// the seam unimplemented. A joiner still pairs by dialing an address
// supplied out of band (e.g. typed in by the user).
type Advertiser interface {
	Advertise(ctx context.Context, port int, codeFingerprint string) error
	StopAdvertising()
}

// deviceIdentity adapts identity.Device to the Session's narrow
// LocalIdentity interface.
type deviceIdentity struct {
	device *identity.Device
}

func (d deviceIdentity) Identity() DeviceInfo {
	return DeviceInfo{DeviceID: d.device.UUID, Name: d.device.Name, PublicKey: d.device.PublicKey}
}

func (d deviceIdentity) Sign(message []byte) []byte {
	return d.device.Sign(message)
}

// Manager ties the pairing protocol to durable state: the device store
// (where a confirmed peer's identity is persisted), the key store (where
// its session key material is encrypted at rest), and the event bus (where
// connect/disconnect and unpair are announced to the rest of spacecore).
type Manager struct {
	local   *identity.Device
	devices store.DeviceStore
	keys    *KeyStore
	bus     *eventbus.Bus
	keyPass string
	minPort int
	maxPort int
	timeout time.Duration
	codeTTL time.Duration
	metrics metrics.PairingMetrics
}

// NewManager constructs a pairing manager. keyPassword encrypts the local
// key store; it is never transmitted and is independent of the pairing
// code, which authenticates the handshake, not the on-disk key material.
// m is optional; pass nil to disable instrumentation.
func NewManager(local *identity.Device, devices store.DeviceStore, keys *KeyStore, bus *eventbus.Bus, keyPassword string, minPort, maxPort int, timeout, codeTTL time.Duration, m metrics.PairingMetrics) *Manager {
	return &Manager{
		local:   local,
		devices: devices,
		keys:    keys,
		bus:     bus,
		keyPass: keyPassword,
		minPort: minPort,
		maxPort: maxPort,
		timeout: timeout,
		codeTTL: codeTTL,
		metrics: m,
	}
}

// Host generates a pairing code, listens for a single joiner, and runs the
// handshake as the initiator. It returns the code and the session, which
// Run leaves awaiting user confirmation; the caller is expected to have already shown the user the code (via
// Code.String) out of band.
func (m *Manager) Host(ctx context.Context) (*Code, *Session, error) {
	if m.metrics != nil {
		m.metrics.RecordPairingAttempt("host")
	}
	code, err := Generate(m.codeTTL)
	if err != nil {
		m.recordFailure("host", "code_generation")
		return nil, nil, err
	}
	listener, err := Listen(m.minPort, m.maxPort)
	if err != nil {
		m.recordFailure("host", "listen")
		return nil, nil, err
	}

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	connCh := make(chan acceptResult, 1)
	go func() {
		conn, err := listener.Accept()
		connCh <- acceptResult{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = listener.Close()
		m.recordFailure("host", "canceled")
		return nil, nil, errors.Canceled("pairing host canceled before a joiner connected")
	case res := <-connCh:
		_ = listener.Close()
		if res.err != nil {
			m.recordFailure("host", "accept")
			return nil, nil, errors.IOError("failed to accept pairing connection", "", false)
		}
		sess := NewSession(res.conn, code, deviceIdentity{m.local}, true, m.timeout)
		if err := sess.Run(ctx); err != nil {
			m.recordFailure("host", "handshake")
			return code, nil, err
		}
		if m.metrics != nil {
			m.metrics.RecordPairingSucceeded("host")
		}
		return code, sess, nil
	}
}

func (m *Manager) recordFailure(role, reason string) {
	if m.metrics != nil {
		m.metrics.RecordPairingFailed(role, reason)
	}
}

// Join dials a host at addr and runs the handshake as the joiner using the
// six words the user typed in.
func (m *Manager) Join(ctx context.Context, addr string, words []string) (*Session, error) {
	if m.metrics != nil {
		m.metrics.RecordPairingAttempt("join")
	}
	code, err := ParseWords(words)
	if err != nil {
		m.recordFailure("join", "invalid_code")
		return nil, err
	}
	conn, err := Dial(addr, m.timeout)
	if err != nil {
		m.recordFailure("join", "dial")
		return nil, err
	}
	sess := NewSession(conn, code, deviceIdentity{m.local}, false, m.timeout)
	if err := sess.Run(ctx); err != nil {
		_ = conn.Close()
		m.recordFailure("join", "handshake")
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.RecordPairingSucceeded("join")
	}
	return sess, nil
}

// Confirm accepts a session the user approved after reviewing the peer's
// identity: persists the peer device record, stores its derived key
// material, and emits DeviceConnected.
func (m *Manager) Confirm(ctx context.Context, sess *Session) error {
	ctx, span := telemetry.StartSpan(ctx, "pairing.confirm")
	defer span.End()

	remote := sess.RemoteDevice()
	telemetry.SetAttributes(ctx, attribute.String("pairing.remote_device", remote.DeviceID))

	keys := sess.SessionKeys()
	if keys == nil {
		err := errors.Internal("cannot confirm a session with no established keys")
		telemetry.RecordError(ctx, err)
		return err
	}

	now := time.Now()
	dev := &store.Device{
		UUID:      remote.DeviceID,
		Name:      remote.Name,
		Slug:      identity.Slugify(remote.Name),
		PublicKey: remote.PublicKey,
		PairedAt:  &now,
	}
	if _, err := m.devices.CreateDevice(ctx, dev); err != nil {
		return err
	}

	material := make([]byte, 0, 96)
	material = append(material, keys.SendKey[:]...)
	material = append(material, keys.ReceiveKey[:]...)
	material = append(material, keys.MacKey[:]...)
	if err := m.keys.Save(m.keyPass, remote.DeviceID, material); err != nil {
		return err
	}

	sess.Confirm()
	m.bus.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindDeviceConnected,
		EmittedAt: now,
		Device:    &eventbus.DeviceEvent{DeviceID: remote.DeviceID},
	})
	if m.metrics != nil {
		if devices, err := m.devices.ListDevices(ctx); err == nil {
			m.metrics.SetPairedDeviceCount(len(devices))
		}
	}
	return nil
}

// Reject tears down a session the user declined.
func (m *Manager) Reject(sess *Session) {
	sess.Abort()
}

// Unpair removes a previously paired peer entirely: its store record, its
// encrypted key material, and publishes a deletion so every in-memory
// cache (sync engine peer table, resolver's online-device set) drops it
// too. A peer removed this way must never reappear after a restart, so
// both the store row and the key file are removed before the event is
// published.
func (m *Manager) Unpair(ctx context.Context, deviceUUID string) error {
	if err := m.devices.DeleteDevice(ctx, deviceUUID); err != nil {
		return err
	}
	if err := m.keys.Delete(deviceUUID); err != nil {
		return err
	}
	m.bus.Publish(ctx, eventbus.Event{
		Kind:            eventbus.KindResourceDeleted,
		EmittedAt:       time.Now(),
		ResourceDeleted: &eventbus.ResourceDeleted{Type: eventbus.ResourceDevice, ID: deviceUUID},
	})
	if m.metrics != nil {
		if devices, err := m.devices.ListDevices(ctx); err == nil {
			m.metrics.SetPairedDeviceCount(len(devices))
		}
	}
	return nil
}
