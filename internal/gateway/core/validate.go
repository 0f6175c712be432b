package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fleetgate-io/fleetgate/internal/gateway/core/model"
)

// ErrMalformedReport marks a payload that failed structural validation.
// Callers on the ingest path drop such payloads with no side effect: the
// ingest channel has no response path, and a misbehaving agent must not
// be able to stall the pipeline.
var ErrMalformedReport = errors.New("malformed report")

// wireReport mirrors the ingest JSON schema with pointer fields so that
// presence can be distinguished from zero values.
type wireReport struct {
	AgentID      *string        `json:"agentId"`
	TS           *float64       `json:"ts"`
	SpeedKph     *float64       `json:"speedKph"`
	SoC          *float64       `json:"soc"`
	BatteryTempC *float64       `json:"batteryTempC"`
	MotorTempC   *float64       `json:"motorTempC"`
	Lat          *float64       `json:"lat"`
	Lng          *float64       `json:"lng"`
	Faults       []string       `json:"faults"`
	Metadata     map[string]any `json:"metadata"`
}

// ParseReport validates a raw ingest payload and produces an immutable
// Report. Validation is purely structural: required fields present, the
// right primitive types, numeric fields finite. No range checks; faults
// and metadata are carried opaquely. Unknown extra fields are ignored.
func ParseReport(raw []byte) (*model.Report, error) {
	var wire wireReport
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}

	if wire.AgentID == nil || *wire.AgentID == "" {
		return nil, fmt.Errorf("%w: agentId is required", ErrMalformedReport)
	}
	if wire.TS == nil {
		return nil, fmt.Errorf("%w: ts is required", ErrMalformedReport)
	}

	measurements := map[string]*float64{
		"speedKph":     wire.SpeedKph,
		"soc":          wire.SoC,
		"batteryTempC": wire.BatteryTempC,
		"motorTempC":   wire.MotorTempC,
		"lat":          wire.Lat,
		"lng":          wire.Lng,
	}
	for name, v := range measurements {
		if v == nil {
			return nil, fmt.Errorf("%w: %s is required", ErrMalformedReport, name)
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrMalformedReport, name)
		}
	}
	if math.IsNaN(*wire.TS) || math.IsInf(*wire.TS, 0) {
		return nil, fmt.Errorf("%w: ts is not finite", ErrMalformedReport)
	}

	faults := wire.Faults
	if faults == nil {
		faults = []string{}
	}

	return &model.Report{
		AgentID:      *wire.AgentID,
		TS:           *wire.TS,
		SpeedKph:     *wire.SpeedKph,
		SoC:          *wire.SoC,
		BatteryTempC: *wire.BatteryTempC,
		MotorTempC:   *wire.MotorTempC,
		Lat:          *wire.Lat,
		Lng:          *wire.Lng,
		Faults:       faults,
		Metadata:     wire.Metadata,
	}, nil
}
