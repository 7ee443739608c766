package metrics

// PairingMetrics instruments the pairing handshake: attempts, outcomes,
// and active paired-device count. Pass nil to disable collection with
// zero overhead.
type PairingMetrics interface {
	RecordPairingAttempt(role string) // "host" or "join"
	RecordPairingSucceeded(role string)
	RecordPairingFailed(role, reason string)
	SetPairedDeviceCount(count int)
}

var newPrometheusPairingMetrics func() PairingMetrics

// RegisterPairingMetricsConstructor is called by pkg/metrics/prometheus
// to install its concrete constructor.
func RegisterPairingMetricsConstructor(constructor func() PairingMetrics) {
	newPrometheusPairingMetrics = constructor
}

// NewPairingMetrics returns a Prometheus-backed PairingMetrics, or nil if
// InitRegistry has not been called.
func NewPairingMetrics() PairingMetrics {
	if !IsEnabled() || newPrometheusPairingMetrics == nil {
		return nil
	}
	return newPrometheusPairingMetrics()
}
