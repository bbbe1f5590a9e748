package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NivelInvalidoUsaInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "verbose", Output: &buf})

	l.Debug().Msg("oculto")
	assert.Zero(t, buf.Len())

	l.Info().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestTenantYComponent_AgreganCampos(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "DEBUG", Service: "storefront", Output: &buf})

	l.Component("sweeper").Tenant("t1").Debug().Msg("hola")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "storefront", got["service"])
	assert.Equal(t, "sweeper", got["component"])
	assert.Equal(t, "t1", got["tenant_id"])
	assert.Equal(t, "debug", got["level"])
}
