package model

import "time"

// Metadata describes a connection as reported by the kernel. It is captured
// at first observation; if a later batch disagrees, the latest value wins —
// the kernel is the source of truth.
type Metadata struct {
	Network         string `json:"network"`
	Type            string `json:"type"`
	SourceIP        string `json:"sourceIP"`
	DestinationIP   string `json:"destinationIP"`
	SourcePort      string `json:"sourcePort"`
	DestinationPort string `json:"destinationPort"`
	Host            string `json:"host"`
	SniffHost       string `json:"sniffHost"`
	DNSMode         string `json:"dnsMode"`
	ProcessName     string `json:"process"`
	ProcessPath     string `json:"processPath"`
}

// Counters are the cumulative byte counters of one connection as reported in
// a single batch, plus its kernel-assigned start time.
type Counters struct {
	Upload   uint64
	Download uint64
	Start    time.Time
}

// Rates are the instantaneous per-batch-interval throughput deltas derived
// from two consecutive Counters observations. Never negative: a counter that
// moves backwards (kernel reset) clamps to zero.
type Rates struct {
	Upload   uint64
	Download uint64
}

// Connection is one decoded, normalized record from a snapshot batch.
type Connection struct {
	// ID is the opaque kernel-assigned identity, unique for the lifetime
	// of one kernel process.
	ID          string
	Metadata    Metadata
	Rule        string
	RulePayload string
	// Chains is the ordered proxy/selector chain that handled the
	// connection, outermost first.
	Chains   []string
	Counters Counters
}

// Entry is one ledger row: a connection enriched with derived rates and the
// sequence number of the batch that last reported it.
type Entry struct {
	Connection
	Rates         Rates
	LastSeenBatch uint64
}
