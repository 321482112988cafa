package kernel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lmikael/conntop/model"
)

// DecodeError reports a structurally malformed snapshot frame. Individual
// bad records never produce it; they are dropped and counted instead.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed snapshot batch: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Batch is one decoded full-state snapshot from the connections feed.
type Batch struct {
	UploadTotal   uint64
	DownloadTotal uint64
	Connections   []model.Connection
	// Dropped counts records that failed to decode or carried no identity.
	Dropped int
}

type rawFrame struct {
	UploadTotal   uint64            `json:"uploadTotal"`
	DownloadTotal uint64            `json:"downloadTotal"`
	Connections   []json.RawMessage `json:"connections"`
}

type rawConn struct {
	ID          string         `json:"id"`
	Metadata    model.Metadata `json:"metadata"`
	Upload      uint64         `json:"upload"`
	Download    uint64         `json:"download"`
	Start       time.Time      `json:"start"`
	Chains      []string       `json:"chains"`
	Rule        string         `json:"rule"`
	RulePayload string         `json:"rulePayload"`
}

// DecodeBatch validates and normalizes one raw frame from the feed. Records
// that fail to unmarshal or are missing the identity field are skipped and
// counted in Batch.Dropped; record order is otherwise preserved. No
// deduplication happens here — duplicate identities within one frame are
// resolved downstream by the rate tracker.
func DecodeBatch(data []byte) (Batch, error) {
	var f rawFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return Batch{}, &DecodeError{Err: err}
	}

	b := Batch{
		UploadTotal:   f.UploadTotal,
		DownloadTotal: f.DownloadTotal,
	}
	for _, raw := range f.Connections {
		var rc rawConn
		if err := json.Unmarshal(raw, &rc); err != nil || rc.ID == "" {
			b.Dropped++
			continue
		}
		b.Connections = append(b.Connections, model.Connection{
			ID:          rc.ID,
			Metadata:    rc.Metadata,
			Rule:        rc.Rule,
			RulePayload: rc.RulePayload,
			Chains:      rc.Chains,
			Counters: model.Counters{
				Upload:   rc.Upload,
				Download: rc.Download,
				Start:    rc.Start,
			},
		})
	}
	return b, nil
}
