package pairing

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"net"
	"time"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Phase is a pairing session's position in the handshake state machine:
//
//	AwaitingChallenge -> AwaitingResponse -> AwaitingConfirmation ->
//	AwaitingDeviceInfo -> AwaitingUserConfirmation -> Paired
//
// A protocol violation or failed verification at any point moves the
// session to Failed instead.
type Phase string

const (
	PhaseAwaitingChallenge        Phase = "awaiting_challenge"
	PhaseAwaitingResponse         Phase = "awaiting_response"
	PhaseAwaitingConfirmation     Phase = "awaiting_confirmation"
	PhaseAwaitingDeviceInfo       Phase = "awaiting_device_info"
	PhaseAwaitingUserConfirmation Phase = "awaiting_user_confirmation"
	PhasePaired                   Phase = "paired"
	PhaseFailed                   Phase = "failed"
)

// LocalIdentity is the subset of identity.Device a pairing session needs:
// enough to build and sign a DeviceInfo message without importing the
// identity package's filesystem concerns.
type LocalIdentity interface {
	Identity() DeviceInfo
	Sign(message []byte) []byte
}

// Session drives one pairing handshake to completion over an established
// transport connection. The caller supplies the connection (see Listen/
// Dial); Session owns only the protocol state.
type Session struct {
	conn        net.Conn
	code        *Code
	local       LocalIdentity
	isInitiator bool
	timeout     time.Duration

	phase  Phase
	remote DeviceInfo
	keys   *SessionKeys
}

// NewSession constructs a session for the given role. isInitiator selects
// which side of the challenge-response and key-exchange ordering this
// session runs.
func NewSession(conn net.Conn, code *Code, local LocalIdentity, isInitiator bool, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Session{conn: conn, code: code, local: local, isInitiator: isInitiator, timeout: timeout, phase: PhaseAwaitingChallenge}
}

// Phase returns the session's current state.
func (s *Session) Phase() Phase { return s.phase }

// RemoteDevice returns the peer's identity once the device-info exchange
// has completed.
func (s *Session) RemoteDevice() DeviceInfo { return s.remote }

// SessionKeys returns the derived symmetric keys once key exchange has
// completed.
func (s *Session) SessionKeys() *SessionKeys { return s.keys }

// Run drives the handshake through authentication, device exchange, and
// session-key establishment, leaving the session in PhaseAwaitingUserConfirmation
// on success. The caller is responsible for showing the remote device's
// name to the user and calling Confirm or Abort.
func (s *Session) Run(ctx context.Context) error {
	if s.code.Expired() {
		s.phase = PhaseFailed
		return errors.AuthenticationFailed("pairing code has expired")
	}

	var err error
	if s.isInitiator {
		err = s.runInitiator(ctx)
	} else {
		err = s.runJoiner(ctx)
	}
	if err != nil {
		s.phase = PhaseFailed
		return err
	}
	s.phase = PhaseAwaitingUserConfirmation
	return nil
}

// Confirm marks a session accepted by the user after Run completed.
func (s *Session) Confirm() {
	s.phase = PhasePaired
}

// Abort tears down a session the user rejected.
func (s *Session) Abort() {
	s.phase = PhaseFailed
	_ = s.conn.Close()
}

func (s *Session) deadline() time.Time { return time.Now().Add(s.timeout) }

func (s *Session) runInitiator(ctx context.Context) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	secret := s.code.Secret()

	initiatorNonce := make([]byte, 16)
	if _, err := rand.Read(initiatorNonce); err != nil {
		return errors.Internal("failed to generate challenge nonce").Wrap(err)
	}
	if err := sendMessage(s.conn, s.deadline(), wireMessage{Type: msgChallenge, Nonce: initiatorNonce, Timestamp: time.Now()}); err != nil {
		return err
	}
	s.phase = PhaseAwaitingResponse

	resp, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return err
	}
	if err := expectType(resp, msgChallengeResponse); err != nil {
		return err
	}
	expected := challengeHash(secret, initiatorNonce, resp.Nonce)
	if !hmac.Equal(expected, resp.ResponseHash) {
		return errors.AuthenticationFailed("joiner failed to prove knowledge of the pairing code")
	}

	confirmationHash := challengeHash(secret, resp.Nonce, initiatorNonce)
	if err := sendMessage(s.conn, s.deadline(), wireMessage{Type: msgChallengeConfirmation, ConfirmationHash: confirmationHash, Timestamp: time.Now()}); err != nil {
		return err
	}
	s.phase = PhaseAwaitingDeviceInfo

	if err := s.sendDeviceInfo(); err != nil {
		return err
	}
	remote, err := s.receiveDeviceInfo(ctx)
	if err != nil {
		return err
	}
	s.remote = remote

	if err := checkCtx(ctx); err != nil {
		return err
	}
	local, err := generateEphemeralKeyPair()
	if err != nil {
		return err
	}
	if err := sendMessage(s.conn, s.deadline(), wireMessage{Type: msgSessionKeyExchange, EphemeralPublicKey: local.public[:]}); err != nil {
		return err
	}
	kx, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return err
	}
	if err := expectType(kx, msgSessionKeyExchange); err != nil {
		return err
	}
	keys, err := deriveSessionKeys(local, kx.EphemeralPublicKey, true)
	if err != nil {
		return err
	}
	s.keys = keys
	return nil
}

func (s *Session) runJoiner(ctx context.Context) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	secret := s.code.Secret()

	challenge, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return err
	}
	if err := expectType(challenge, msgChallenge); err != nil {
		return err
	}
	s.phase = PhaseAwaitingResponse

	joinerNonce := make([]byte, 16)
	if _, err := rand.Read(joinerNonce); err != nil {
		return errors.Internal("failed to generate challenge nonce").Wrap(err)
	}
	responseHash := challengeHash(secret, challenge.Nonce, joinerNonce)
	if err := sendMessage(s.conn, s.deadline(), wireMessage{Type: msgChallengeResponse, ResponseHash: responseHash, Nonce: joinerNonce, Timestamp: time.Now()}); err != nil {
		return err
	}
	s.phase = PhaseAwaitingConfirmation

	confirmation, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return err
	}
	if err := expectType(confirmation, msgChallengeConfirmation); err != nil {
		return err
	}
	expected := challengeHash(secret, joinerNonce, challenge.Nonce)
	if !hmac.Equal(expected, confirmation.ConfirmationHash) {
		return errors.AuthenticationFailed("initiator failed to prove knowledge of the pairing code")
	}
	s.phase = PhaseAwaitingDeviceInfo

	remote, err := s.receiveDeviceInfo(ctx)
	if err != nil {
		return err
	}
	s.remote = remote
	if err := s.sendDeviceInfo(); err != nil {
		return err
	}

	kx, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return err
	}
	if err := expectType(kx, msgSessionKeyExchange); err != nil {
		return err
	}
	if err := checkCtx(ctx); err != nil {
		return err
	}
	local, err := generateEphemeralKeyPair()
	if err != nil {
		return err
	}
	if err := sendMessage(s.conn, s.deadline(), wireMessage{Type: msgSessionKeyExchange, EphemeralPublicKey: local.public[:]}); err != nil {
		return err
	}
	keys, err := deriveSessionKeys(local, kx.EphemeralPublicKey, false)
	if err != nil {
		return err
	}
	s.keys = keys
	return nil
}

func (s *Session) sendDeviceInfo() error {
	info := s.local.Identity()
	data, err := json.Marshal(info)
	if err != nil {
		return errors.Internal("failed to encode device info for signing").Wrap(err)
	}
	sig := s.local.Sign(data)
	return sendMessage(s.conn, s.deadline(), wireMessage{
		Type:      msgDeviceInfo,
		DeviceID:  info.DeviceID,
		Name:      info.Name,
		PublicKey: info.PublicKey,
		Signature: sig,
	})
}

func (s *Session) receiveDeviceInfo(ctx context.Context) (DeviceInfo, error) {
	if err := checkCtx(ctx); err != nil {
		return DeviceInfo{}, err
	}
	msg, err := receiveMessage(s.conn, s.deadline())
	if err != nil {
		return DeviceInfo{}, err
	}
	if err := expectType(msg, msgDeviceInfo); err != nil {
		return DeviceInfo{}, err
	}
	info := DeviceInfo{DeviceID: msg.DeviceID, Name: msg.Name, PublicKey: msg.PublicKey}
	data, err := json.Marshal(info)
	if err != nil {
		return DeviceInfo{}, errors.Internal("failed to encode remote device info for verification").Wrap(err)
	}
	if len(msg.PublicKey) != ed25519.PublicKeySize || !ed25519.Verify(msg.PublicKey, data, msg.Signature) {
		return DeviceInfo{}, errors.AuthenticationFailed("invalid device info signature")
	}
	return info, nil
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Canceled("pairing session canceled")
	}
	return nil
}

// challengeHash computes H(secret, a, b) with HMAC-SHA-256, matching the
// protocol's H(code || nonce_i || nonce_j) construction.
func challengeHash(secret, a, b []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(a)
	mac.Write(b)
	return mac.Sum(nil)
}

