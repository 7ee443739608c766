package pairing

import (
	"context"
	"crypto/ed25519"
	"net"
	"testing"
	"time"
)

type testIdentity struct {
	info DeviceInfo
	priv ed25519.PrivateKey
}

func newTestIdentity(t *testing.T, deviceID, name string) testIdentity {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return testIdentity{info: DeviceInfo{DeviceID: deviceID, Name: name, PublicKey: pub}, priv: priv}
}

func (ti testIdentity) Identity() DeviceInfo    { return ti.info }
func (ti testIdentity) Sign(message []byte) []byte { return ed25519.Sign(ti.priv, message) }

func TestSession_FullHandshakeOverLoopback(t *testing.T) {
	initiatorConn, joinerConn := net.Pipe()
	defer initiatorConn.Close()
	defer joinerConn.Close()

	code, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	initiatorIdentity := newTestIdentity(t, "device-a", "Alice's Laptop")
	joinerIdentity := newTestIdentity(t, "device-b", "Bob's Phone")

	initiator := NewSession(initiatorConn, code, initiatorIdentity, true, 5*time.Second)
	joiner := NewSession(joinerConn, code, joinerIdentity, false, 5*time.Second)

	type result struct {
		err error
	}
	initiatorDone := make(chan result, 1)
	joinerDone := make(chan result, 1)

	go func() { initiatorDone <- result{initiator.Run(context.Background())} }()
	go func() { joinerDone <- result{joiner.Run(context.Background())} }()

	ir := <-initiatorDone
	jr := <-joinerDone

	if ir.err != nil {
		t.Fatalf("initiator run: %v", ir.err)
	}
	if jr.err != nil {
		t.Fatalf("joiner run: %v", jr.err)
	}

	if initiator.Phase() != PhaseAwaitingUserConfirmation {
		t.Errorf("initiator phase = %v, want %v", initiator.Phase(), PhaseAwaitingUserConfirmation)
	}
	if joiner.Phase() != PhaseAwaitingUserConfirmation {
		t.Errorf("joiner phase = %v, want %v", joiner.Phase(), PhaseAwaitingUserConfirmation)
	}

	if initiator.RemoteDevice().DeviceID != "device-b" {
		t.Errorf("initiator sees remote %q, want device-b", initiator.RemoteDevice().DeviceID)
	}
	if joiner.RemoteDevice().DeviceID != "device-a" {
		t.Errorf("joiner sees remote %q, want device-a", joiner.RemoteDevice().DeviceID)
	}

	ik, jk := initiator.SessionKeys(), joiner.SessionKeys()
	if ik == nil || jk == nil {
		t.Fatal("expected both sides to derive session keys")
	}
	if ik.SendKey != jk.ReceiveKey {
		t.Error("initiator send key should equal joiner receive key")
	}
	if ik.ReceiveKey != jk.SendKey {
		t.Error("initiator receive key should equal joiner send key")
	}
	if ik.MacKey != jk.MacKey {
		t.Error("both sides should derive the same MAC key")
	}
}

func TestSession_ExpiredCodeFailsImmediately(t *testing.T) {
	conn, other := net.Pipe()
	defer conn.Close()
	defer other.Close()

	code, err := Generate(-time.Minute)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	id := newTestIdentity(t, "device-a", "Alice")
	sess := NewSession(conn, code, id, true, time.Second)

	if err := sess.Run(context.Background()); err == nil {
		t.Fatal("expected expired code to fail Run")
	}
	if sess.Phase() != PhaseFailed {
		t.Errorf("phase = %v, want %v", sess.Phase(), PhaseFailed)
	}
}

func TestSession_WrongCodeFailsChallenge(t *testing.T) {
	initiatorConn, joinerConn := net.Pipe()
	defer initiatorConn.Close()
	defer joinerConn.Close()

	initiatorCode, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	joinerCode, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	initiator := NewSession(initiatorConn, initiatorCode, newTestIdentity(t, "a", "A"), true, 5*time.Second)
	joiner := NewSession(joinerConn, joinerCode, newTestIdentity(t, "b", "B"), false, 5*time.Second)

	initiatorErr := make(chan error, 1)
	joinerErr := make(chan error, 1)
	go func() { initiatorErr <- initiator.Run(context.Background()) }()
	go func() { joinerErr <- joiner.Run(context.Background()) }()

	ierr := <-initiatorErr
	jerr := <-joinerErr

	if ierr == nil && jerr == nil {
		t.Fatal("expected at least one side to reject a mismatched pairing code")
	}
}

func TestSession_CancelledContextAbortsBeforeNetworkIO(t *testing.T) {
	conn, other := net.Pipe()
	defer conn.Close()
	defer other.Close()

	code, err := Generate(time.Minute)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	id := newTestIdentity(t, "device-a", "Alice")
	sess := NewSession(conn, code, id, true, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sess.Run(ctx); err == nil {
		t.Fatal("expected canceled context to abort the handshake")
	}
}
