package gateway

import (
	"testing"

	"scrim-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMapStatus(t *testing.T) {
	cases := map[string]Status{
		"SUCCESS":      StatusSuccess,
		"paid":         StatusSuccess,
		"successful":   StatusSuccess,
		"FAILED":       StatusFailure,
		"USER_DROPPED": StatusFailure,
		"CANCELLED":    StatusFailure,
		"EXPIRED":      StatusFailure,
		"ACTIVE":       StatusPending,
		"":             StatusPending,
		"  pending ":   StatusPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, MapStatus(raw), raw)
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	log := zap.NewNop()

	gw, err := New(utils.PaymentConfig{Driver: "rest", BaseURL: "https://sandbox.example.com/pg"}, nil, log)
	assert.NoError(t, err)
	assert.IsType(t, &RESTGateway{}, gw)

	_, err = New(utils.PaymentConfig{Driver: "rest"}, nil, log)
	assert.Error(t, err)

	_, err = New(utils.PaymentConfig{Driver: "omise"}, nil, log)
	assert.Error(t, err)

	_, err = New(utils.PaymentConfig{Driver: "paypal"}, nil, log)
	assert.Error(t, err)
}
