package messaging

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/infrastructure/config"
	"onchain-intel/internal/infrastructure/logger"
)

func TestDecodeFragment(t *testing.T) {
	msg, err := DecodeFragment([]byte(`{
		"address": " 0xAbC0000000000000000000000000000000000001 ",
		"source": "gmgn",
		"fragment": {"winrate": 0.72, "name": "Degen", "is_contract": false}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "0xAbC0000000000000000000000000000000000001", msg.Address)
	assert.Equal(t, "gmgn", msg.Source)
	assert.Equal(t, 0.72, msg.Fragment[entity.StatWinRate].Float())
	assert.Equal(t, "Degen", msg.Fragment[entity.StatName].String())
	assert.Equal(t, 0.0, msg.Fragment[entity.StatIsContract].Float())
}

func TestDecodeFragment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `winrate=1`},
		{name: "no address", payload: `{"fragment": {"winrate": 1}}`},
		{name: "empty fragment", payload: `{"address": "0x01", "fragment": {}}`},
		{name: "unsupported value", payload: `{"address": "0x01", "fragment": {"winrate": [1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFragment([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestDecodeFragment_DefaultSource(t *testing.T) {
	msg, err := DecodeFragment([]byte(`{"address": "0x01", "fragment": {"pnl": 0.1}}`))
	require.NoError(t, err)
	assert.Equal(t, "nats", msg.Source)
}

func TestNATSConsumer_HandleMessage(t *testing.T) {
	consumer := NewNATSConsumer(&config.NATSConfig{SubjectPrefix: "intel", MaxPendingMessages: 1}, logger.NewNopLogger())
	assert.Equal(t, "intel.fragments", consumer.Subject())

	payload := []byte(`{"address": "0x01", "fragment": {"pnl": 0.1}}`)
	consumer.handleMessage(&nats.Msg{Data: payload})
	// The channel holds one message; the second is dropped.
	consumer.handleMessage(&nats.Msg{Data: payload})
	consumer.handleMessage(&nats.Msg{Data: []byte(`garbage`)})

	require.Len(t, consumer.GetMessageChannel(), 1)
	got := <-consumer.GetMessageChannel()
	assert.Equal(t, "0x01", got.Address)

	require.NoError(t, consumer.Disconnect())
	require.NoError(t, consumer.Disconnect())
	_, open := <-consumer.Done()
	assert.False(t, open)
	assert.False(t, consumer.IsConnected())
}

func TestNATSConsumer_DisabledConnectIsNoop(t *testing.T) {
	consumer := NewNATSConsumer(&config.NATSConfig{Enabled: false}, logger.NewNopLogger())
	require.NoError(t, consumer.Connect(t.Context()))
	assert.False(t, consumer.IsConnected())
}
