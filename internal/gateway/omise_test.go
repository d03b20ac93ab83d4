package gateway

import (
	"testing"

	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMapChargeStatus(t *testing.T) {
	tests := map[string]Status{
		"successful": StatusPaid,
		"pending":    StatusPendingActive,
		"failed":     StatusFailedTerminal,
		"expired":    StatusFailedTerminal,
		"reversed":   StatusFailedTerminal,
		"":           StatusPendingActive,
		"unknown":    StatusPendingActive,
	}

	for in, want := range tests {
		assert.Equal(t, want, MapChargeStatus(in), "status %q", in)
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(81600), toMinorUnits(816))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, 816.0, fromMinorUnits(81600))
}

func TestRawCharge(t *testing.T) {
	g := &omiseGateway{log: zap.NewNop()}

	ok := &omise.Charge{}
	ok.ID = "chrg_test_1"
	assert.Contains(t, string(g.rawCharge(ok)), "chrg_test_1")

	bad := &omise.Charge{Metadata: map[string]interface{}{"unencodable": make(chan int)}}
	assert.Nil(t, g.rawCharge(bad))
}
