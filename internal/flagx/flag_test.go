package flagx

import (
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "separate value",
			args:         []string{"-c", "portal.json", "-j", "AU"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "portal.json"},
		},
		{
			name:         "equals form",
			args:         []string{"--config=portal.json", "-j", "AU"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=portal.json"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-j", "SG", "-x", "1", "-b", "https://portal.example"},
			allowedFlags: []string{"-j", "-b"},
			want:         []string{"-j", "SG", "-b", "https://portal.example"},
		},
		{
			name:         "unknown flags dropped",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag at end without value",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next flag is not a value",
			args:         []string{"-c", "-j"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "empty",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/portal.json", ConfigPath([]string{"-c", "/etc/portal.json"}))
	assert.Equal(t, "/etc/long.json", ConfigPath([]string{"-config", "/etc/long.json", "-j", "AU"}))
	assert.Equal(t, "/2.json", ConfigPath([]string{"-c", "/1.json", "-config", "/2.json"}))
	assert.Empty(t, ConfigPath([]string{"-j", "AU"}))
}

func TestJsonConfigFlags_UsesProcessArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"server", "-c", "/tmp/portal.json"}
	assert.Equal(t, "/tmp/portal.json", JsonConfigFlags())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TP_TEST_STR", "AU")
	t.Setenv("TP_TEST_INT", "128")
	t.Setenv("TP_TEST_DUR", "45s")
	t.Setenv("TP_TEST_LIST", "a:9092, b:9092,,")
	t.Setenv("TP_TEST_BAD", "nope")

	s := "SG"
	EnvString(&s, "TP_TEST_STR")
	assert.Equal(t, "AU", s)

	unset := "keep"
	EnvString(&unset, "TP_TEST_MISSING")
	assert.Equal(t, "keep", unset)

	n := 256
	require.NoError(t, EnvInt(&n, "TP_TEST_INT"))
	assert.Equal(t, 128, n)
	assert.Error(t, EnvInt(&n, "TP_TEST_BAD"))

	d := time.Minute
	require.NoError(t, EnvDuration(&d, "TP_TEST_DUR"))
	assert.Equal(t, 45*time.Second, d)
	assert.Error(t, EnvDuration(&d, "TP_TEST_BAD"))

	var list []string
	EnvList(&list, "TP_TEST_LIST")
	assert.Equal(t, []string{"a:9092", "b:9092"}, list)
}
