package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "conf.json", "-a", "https://api.example"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-a", "x"},
			allowed: []string{"--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-r"},
			allowed: []string{"-r"},
			want:    []string{"-r"},
		},
		{
			name:    "next flag is not a value",
			args:    []string{"-c", "-s", "memory"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "value starting with dashes after equals",
			args:    []string{"--config=--weird.json"},
			allowed: []string{"--config"},
			want:    []string{"--config=--weird.json"},
		},
		{
			name:    "order and repeats kept",
			args:    []string{"-s", "sqlite", "-d", "a.db", "-s", "memory"},
			allowed: []string{"-s", "-d"},
			want:    []string{"-s", "sqlite", "-d", "a.db", "-s", "memory"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigPath([]string{"-s", "memory", "-config", "/path/long.json"}))
	assert.Equal(t, "/path/eq.json", ConfigPath([]string{"--config=/path/eq.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
	assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}), "last wins")
}
