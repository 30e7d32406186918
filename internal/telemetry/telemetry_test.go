package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	tel, err := Setup(context.Background(), "investcalc-test", "")
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestShutdown_Nil(t *testing.T) {
	var tel *Telemetry
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource("investcalc-test")
	require.NoError(t, err)

	var found bool
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.name" {
			found = true
			require.Equal(t, "investcalc-test", kv.Value.AsString())
		}
	}
	require.True(t, found)
}
