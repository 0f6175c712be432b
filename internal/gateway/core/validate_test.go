package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSample = `{"agentId":"v1","ts":1000,"speedKph":42.0,"soc":0.5,"batteryTempC":30,"motorTempC":40,"lat":10,"lng":20,"faults":[]}`

func TestParseReportValid(t *testing.T) {
	report, err := ParseReport([]byte(validSample))
	require.NoError(t, err)

	assert.Equal(t, "v1", report.AgentID)
	assert.Equal(t, float64(1000), report.TS)
	assert.Equal(t, 42.0, report.SpeedKph)
	assert.Equal(t, 0.5, report.SoC)
	assert.NotNil(t, report.Faults)
	assert.Empty(t, report.Faults)
	assert.Nil(t, report.Metadata)
}

func TestParseReportCarriesOpaqueFields(t *testing.T) {
	raw := `{"agentId":"v2","ts":2000,"speedKph":1,"soc":0.9,"batteryTempC":21,"motorTempC":35,"lat":-12.5,"lng":99.1,` +
		`"faults":["BAT_OVER_TEMP","GPS_DRIFT"],"metadata":{"fw":"1.4.2","nested":{"a":1}}}`

	report, err := ParseReport([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"BAT_OVER_TEMP", "GPS_DRIFT"}, report.Faults)
	assert.Equal(t, "1.4.2", report.Metadata["fw"])
	assert.Contains(t, report.Metadata, "nested")
}

func TestParseReportRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unparsable", `{"agentId":`},
		{"not an object", `[1,2,3]`},
		{"missing agentId", `{"ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1}`},
		{"empty agentId", `{"agentId":"","ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1}`},
		{"missing ts", `{"agentId":"v1","speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1}`},
		{"missing measurement", `{"agentId":"v1","ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1}`},
		{"string measurement", `{"agentId":"v1","ts":1,"speedKph":"fast","soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1}`},
		{"numeric agentId", `{"agentId":7,"ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1}`},
		{"faults not strings", `{"agentId":"v1","ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1,"faults":[1]}`},
		{"metadata not an object", `{"agentId":"v1","ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1,"metadata":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseReport([]byte(tt.raw))
			assert.Nil(t, report)
			assert.ErrorIs(t, err, ErrMalformedReport)
		})
	}
}

func TestParseReportIgnoresUnknownFields(t *testing.T) {
	raw := `{"agentId":"v1","ts":1,"speedKph":1,"soc":1,"batteryTempC":1,"motorTempC":1,"lat":1,"lng":1,"extra":"ignored"}`

	report, err := ParseReport([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "v1", report.AgentID)
}
