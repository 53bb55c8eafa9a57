package model

import (
	"encoding/json"
	"time"
)

// Direction is the side of a proposed trade.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// MarketStructure classifies recent price action.
type MarketStructure string

const (
	StructureBullish MarketStructure = "BULLISH"
	StructureBearish MarketStructure = "BEARISH"
	StructureRanging MarketStructure = "RANGING"
)

// VolumeStrength grades the volume backing a signal, from the ratio of the
// latest candle's volume to the trailing mean. LOW signals are rejected by
// the risk manager; MEDIUM and STRONG add confidence.
type VolumeStrength string

const (
	VolumeLow    VolumeStrength = "LOW"    // ratio < 1.5
	VolumeMedium VolumeStrength = "MEDIUM" // 1.5 – 2.0
	VolumeStrong VolumeStrength = "STRONG" // > 2.0
)

// SupportResistance holds the recent floor/ceiling levels a breakout is
// measured against. Quality is range over midpoint; wider ranges score higher.
type SupportResistance struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Quality    float64 `json:"quality"`
}

// SignalProposal is a directional trade proposed by a single strategy.
// It is never mutated after creation; the coordinator wraps it into a
// Signal with enrichment fields instead.
type SignalProposal struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // 0–100
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	RiskReward float64   `json:"risk_reward"`
	Strategy   string    `json:"strategy"`
	Rationale  string    `json:"rationale"`
}

// Signal is the coordinator's final enriched record: the winning proposal
// plus volume confirmation and bookkeeping fields consumed downstream.
type Signal struct {
	SignalProposal

	ID             string         `json:"id"` // ULID
	VolumeStrength VolumeStrength `json:"volume_strength"`
	VolumeRatio    float64        `json:"volume_ratio"`
	IssuedAt       time.Time      `json:"issued_at"`
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// SignalFromJSON decodes a published signal.
func SignalFromJSON(data []byte) (*Signal, error) {
	var s Signal
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
