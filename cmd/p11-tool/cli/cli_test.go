package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliEnv(t *testing.T) {
	c := &Cli{}
	_, err := c.Env()
	require.Error(t, err)
	assert.Equal(t, "use --cfg flag to specify config file", err.Error())

	c.Cfg = "testdata/notfound.yaml"
	_, err = c.Env()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to load config")

	c.Cfg = "testdata/missing.yaml"
	_, err = c.Env()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token not found: nonexisting")

	c.Cfg = "testdata/softtoken.yaml"
	env, err := c.Env()
	require.NoError(t, err)
	assert.True(t, env.LoginRequired())

	env2, err := c.Env()
	require.NoError(t, err)
	assert.Same(t, env, env2)

	c.Close()
	c.Close()
}
