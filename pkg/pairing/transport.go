package pairing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/binary"
	"io"
	"math/big"
	"net"
	"strconv"
	"time"

	"github.com/spacecore/spacecore/pkg/errors"
)

// MaxMessageSize is the framing cap; any larger message is rejected before
// it is fully read.
const MaxMessageSize = 1 << 20 // 1 MiB

const certCommonName = "spacecore-pairing"

// serverTLSConfig builds a TLS server configuration around a freshly
// generated, self-signed certificate. The certificate chain is never
// validated against any CA on either side — authenticity comes from the
// challenge-response exchange over the pairing code, not from PKI.
func serverTLSConfig() (*tls.Config, error) {
	cert, err := generateEphemeralCert()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// clientTLSConfig builds a TLS client configuration that accepts any
// server certificate. See serverTLSConfig for why this is safe here.
func clientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // authenticity verified by challenge-response, not the cert chain
		MinVersion:         tls.VersionTLS13,
	}
}

func generateEphemeralCert() (tls.Certificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return tls.Certificate{}, errors.Internal("failed to generate ephemeral TLS key").Wrap(err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, errors.Internal("failed to generate certificate serial").Wrap(err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: certCommonName},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		DNSNames:     []string{certCommonName},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return tls.Certificate{}, errors.Internal("failed to create ephemeral certificate").Wrap(err)
	}

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}, nil
}

// Listen binds a TLS listener for the initiator role on the first free
// port in [minPort, maxPort].
func Listen(minPort, maxPort int) (net.Listener, error) {
	cfg, err := serverTLSConfig()
	if err != nil {
		return nil, err
	}
	for port := minPort; port <= maxPort; port++ {
		addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
		ln, err := tls.Listen("tcp", addr, cfg)
		if err == nil {
			return ln, nil
		}
	}
	return nil, errors.IOError("no free port in pairing listen range", "", false)
}

// Dial connects to the initiator as the joiner role.
func Dial(addr string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, clientTLSConfig())
	if err != nil {
		return nil, errors.IOError("failed to dial pairing initiator", addr, true)
	}
	return conn, nil
}

// writeFramed writes a 4-byte big-endian length prefix followed by payload.
func writeFramed(conn net.Conn, payload []byte) error {
	if len(payload) > MaxMessageSize {
		return errors.Protocol("pairing message exceeds the 1 MiB size limit")
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := conn.Write(hdr[:]); err != nil {
		return errors.IOError("failed to write pairing message length", "", true)
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.IOError("failed to write pairing message body", "", true)
	}
	return nil
}

// readFramed reads one length-prefixed message, rejecting anything over
// MaxMessageSize before allocating a buffer for it.
func readFramed(conn net.Conn) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(conn, hdr[:]); err != nil {
		return nil, errors.IOError("failed to read pairing message length", "", true)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxMessageSize {
		return nil, errors.Protocol("pairing message exceeds the 1 MiB size limit")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, errors.IOError("failed to read pairing message body", "", true)
	}
	return buf, nil
}
