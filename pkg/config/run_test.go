package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		want        RunArgs
		errContains string
	}{
		{name: "list", args: []string{"list"}, want: RunArgs{Mode: ModeList}},
		{name: "list_ignores_modifiers", args: []string{"list", "delete", "verify"}, want: RunArgs{Mode: ModeList}},
		{name: "sync_nodelete", args: []string{"sync", "nodelete"}, want: RunArgs{Mode: ModeSync}},
		{name: "sync_delete", args: []string{"sync", "delete"}, want: RunArgs{Mode: ModeSync, Delete: true}},
		{name: "sync_delete_verify", args: []string{"SYNC", "Delete", "verify"}, want: RunArgs{Mode: ModeSync, Delete: true, Verify: true}},
		{name: "sync_verify_first", args: []string{"sync", "verify", "nodelete"}, want: RunArgs{Mode: ModeSync, Verify: true}},
		{name: "no_args", args: nil, errContains: "no mode provided"},
		{name: "unknown_mode", args: []string{"copy"}, errContains: "unknown mode"},
		{name: "sync_without_delete_flag", args: []string{"sync"}, errContains: "requires 'delete' or 'nodelete'"},
		{name: "sync_both_flags", args: []string{"sync", "delete", "nodelete"}, errContains: "mutually exclusive"},
		{name: "unknown_token", args: []string{"sync", "delete", "now"}, errContains: "unknown argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRunArgs(tt.args)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunArgsString(t *testing.T) {
	assert.Equal(t, "list", RunArgs{Mode: ModeList, Delete: true}.String())
	assert.Equal(t, "sync nodelete", RunArgs{Mode: ModeSync}.String())
	assert.Equal(t, "sync delete verify", RunArgs{Mode: ModeSync, Delete: true, Verify: true}.String())
}
