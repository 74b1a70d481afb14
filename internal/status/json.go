package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details. The buffered digits themselves
// are never exposed here, only their count.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Session       string     `json:"session"`
	State         string     `json:"state"`
	BufferedCount int        `json:"buffered_digits"`
	TableSize     int        `json:"table_size"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"decision_counts"`
	Reloads       int        `json:"table_reloads"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decision counters.
type CountsJSON struct {
	Valid           int `json:"valid"`
	Invalid         int `json:"invalid"`
	InterDigit      int `json:"inter_digit_timeouts"`
	EntryTimeout    int `json:"entry_timeouts"`
	Overflows       int `json:"overflows"`
	Discontinuities int `json:"discontinuities"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs       int64  `json:"tick_ms"`
	InterDigitMs int64  `json:"inter_digit_timeout_ms"`
	EntryMs      int64  `json:"entry_timeout_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	CodesFile    string `json:"codes_file"`
	PassThrough  bool   `json:"pass_through"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Session:       snap.Session,
		State:         string(snap.State),
		BufferedCount: snap.BufferLen,
		TableSize:     snap.TableSize,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Valid:           snap.Counts.Valid,
			Invalid:         snap.Counts.Invalid,
			InterDigit:      snap.Counts.InterDigit,
			EntryTimeout:    snap.Counts.EntryTimeout,
			Overflows:       snap.Counts.Overflows,
			Discontinuities: snap.Counts.Discontinuities,
		},
		Reloads: snap.Reloads,
		Config: ConfigJSON{
			TickMs:       snap.Config.TickMs,
			InterDigitMs: snap.Config.InterDigitMs,
			EntryMs:      snap.Config.EntryMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			CodesFile:    snap.Config.CodesFile,
			PassThrough:  snap.Config.PassThrough,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
