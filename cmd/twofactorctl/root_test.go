package main

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "worker", "cleanup", "status", "devices", "disable", "regenerate-codes", "forget-devices"} {
		assert.Contains(t, names, want)
	}
}

func TestUserCommands_RequireUserID(t *testing.T) {
	for _, name := range []string{"status", "devices", "disable", "regenerate-codes", "forget-devices"} {
		t.Run(name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetErr(&out)
			root.SetArgs([]string{name})

			err := root.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "accepts 1 arg(s), received 0")
		})
	}
}

func TestPrint(t *testing.T) {
	opts := &rootOptions{json: true}
	var buf bytes.Buffer

	require.NoError(t, opts.print(&buf, map[string]int64{"forgotten": 2}, nil))
	assert.JSONEq(t, `{"forgotten":2}`, buf.String())

	opts.json = false
	buf.Reset()
	require.NoError(t, opts.print(&buf, nil, func(w io.Writer) { w.Write([]byte("plain\n")) }))
	assert.Equal(t, "plain\n", buf.String())
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer

	writeStatus(&buf, statusOutput{
		UserID: "user-1",
		Status: &models.Status{
			Enabled:                true,
			Method:                 models.MethodSMS,
			Confirmed:              true,
			PhoneNumber:            "********4567",
			RecoveryCodesRemaining: 8,
		},
		Attempts: &models.AttemptStats{Total: 3, Failed: 1},
	}, 24*time.Hour)

	out := buf.String()
	assert.Contains(t, out, "method:               sms")
	assert.Contains(t, out, "********4567")
	assert.Contains(t, out, "recovery codes left:  8")
	assert.Contains(t, out, "3 total, 1 failed")
}
