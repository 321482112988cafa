package engine

import (
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lmikael/conntop/model"
)

// Column is one table column expressed as pure data: a title, a renderer and
// a comparator. Which columns are shown and in what order is the caller's
// configuration; nothing here assumes the full set is present.
type Column struct {
	Key     string
	Title   string
	Width   int
	Render  func(e *model.Entry) string
	Compare func(a, b *model.Entry) int
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// columns is the registry of every column the table knows how to show.
var columns = []Column{
	{
		Key: "host", Title: "Host", Width: 30,
		Render:  func(e *model.Entry) string { return displayHost(e) },
		Compare: func(a, b *model.Entry) int { return strings.Compare(displayHost(a), displayHost(b)) },
	},
	{
		Key: "network", Title: "Net", Width: 5,
		Render:  func(e *model.Entry) string { return e.Metadata.Network },
		Compare: func(a, b *model.Entry) int { return strings.Compare(a.Metadata.Network, b.Metadata.Network) },
	},
	{
		Key: "type", Title: "Type", Width: 12,
		Render:  func(e *model.Entry) string { return e.Metadata.Type },
		Compare: func(a, b *model.Entry) int { return strings.Compare(a.Metadata.Type, b.Metadata.Type) },
	},
	{
		Key: "process", Title: "Process", Width: 14,
		Render:  func(e *model.Entry) string { return processName(e) },
		Compare: func(a, b *model.Entry) int { return strings.Compare(processName(a), processName(b)) },
	},
	{
		Key: "rule", Title: "Rule", Width: 18,
		Render: func(e *model.Entry) string {
			if e.RulePayload != "" {
				return e.Rule + "(" + e.RulePayload + ")"
			}
			return e.Rule
		},
		Compare: func(a, b *model.Entry) int { return strings.Compare(a.Rule, b.Rule) },
	},
	{
		Key: "chains", Title: "Chains", Width: 22,
		Render:  func(e *model.Entry) string { return strings.Join(e.Chains, " → ") },
		Compare: func(a, b *model.Entry) int { return strings.Compare(strings.Join(a.Chains, ","), strings.Join(b.Chains, ",")) },
	},
	{
		Key: "ulspeed", Title: "UL/s", Width: 10,
		Render:  func(e *model.Entry) string { return humanize.Bytes(e.Rates.Upload) + "/s" },
		Compare: func(a, b *model.Entry) int { return cmpUint(a.Rates.Upload, b.Rates.Upload) },
	},
	{
		Key: "dlspeed", Title: "DL/s", Width: 10,
		Render:  func(e *model.Entry) string { return humanize.Bytes(e.Rates.Download) + "/s" },
		Compare: func(a, b *model.Entry) int { return cmpUint(a.Rates.Download, b.Rates.Download) },
	},
	{
		Key: "ul", Title: "UL", Width: 9,
		Render:  func(e *model.Entry) string { return humanize.Bytes(e.Counters.Upload) },
		Compare: func(a, b *model.Entry) int { return cmpUint(a.Counters.Upload, b.Counters.Upload) },
	},
	{
		Key: "dl", Title: "DL", Width: 9,
		Render:  func(e *model.Entry) string { return humanize.Bytes(e.Counters.Download) },
		Compare: func(a, b *model.Entry) int { return cmpUint(a.Counters.Download, b.Counters.Download) },
	},
	{
		Key: "source", Title: "Source", Width: 21,
		Render:  func(e *model.Entry) string { return e.Metadata.SourceIP + ":" + e.Metadata.SourcePort },
		Compare: func(a, b *model.Entry) int { return strings.Compare(a.Metadata.SourceIP, b.Metadata.SourceIP) },
	},
	{
		Key: "destination", Title: "Destination", Width: 21,
		Render:  func(e *model.Entry) string { return e.Metadata.DestinationIP + ":" + e.Metadata.DestinationPort },
		Compare: func(a, b *model.Entry) int { return strings.Compare(a.Metadata.DestinationIP, b.Metadata.DestinationIP) },
	},
	{
		Key: "start", Title: "Start", Width: 9,
		Render:  func(e *model.Entry) string { return humanize.Time(e.Counters.Start) },
		Compare: func(a, b *model.Entry) int { return a.Counters.Start.Compare(b.Counters.Start) },
	},
}

// Columns returns the full column registry in definition order.
func Columns() []Column {
	out := make([]Column, len(columns))
	copy(out, columns)
	return out
}

// ColumnByKey resolves a column key; ok is false for unknown keys so callers
// can tolerate stale configuration.
func ColumnByKey(key string) (Column, bool) {
	for _, c := range columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsByKeys resolves an ordered subset of column keys, silently skipping
// unknown ones.
func ColumnsByKeys(keys []string) []Column {
	out := make([]Column, 0, len(keys))
	for _, k := range keys {
		if c, ok := ColumnByKey(k); ok {
			out = append(out, c)
		}
	}
	return out
}

func displayHost(e *model.Entry) string {
	if e.Metadata.Host != "" {
		return e.Metadata.Host
	}
	return e.Metadata.DestinationIP
}

func processName(e *model.Entry) string {
	if e.Metadata.ProcessName != "" {
		return e.Metadata.ProcessName
	}
	if e.Metadata.ProcessPath == "" {
		return ""
	}
	parts := strings.Split(e.Metadata.ProcessPath, "/")
	return parts[len(parts)-1]
}
