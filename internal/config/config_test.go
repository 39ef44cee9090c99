package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesKnownKeys(t *testing.T) {
	path := t.TempDir() + "/ahoy.conf"
	contents := `# comment
[general]
mqtt.host = 192.168.1.5
mqtt.port = 1883
mqtt.user = ahoy
mqtt.password = secret
dtu.serial = 99978563412
inverter.serial = 112200000001, 116100000002
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5", f.MQTTHost)
	assert.Equal(t, 1883, f.MQTTPort)
	assert.Equal(t, "ahoy", f.MQTTUser)
	assert.Equal(t, "secret", f.MQTTPassword)
	assert.Equal(t, "99978563412", f.DTUSerial)
	assert.Equal(t, []string{"112200000001", "116100000002"}, f.InverterList)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/missing.conf")
	assert.Error(t, err)
}

func TestLoadDefaultsDTUSerialWhenAbsent(t *testing.T) {
	path := t.TempDir() + "/ahoy.conf"
	require.NoError(t, os.WriteFile(path, []byte("inverter.serial = 112200000001\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "99978563412", f.DTUSerial)
}
