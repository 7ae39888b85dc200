package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequestWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	req := &Request{
		Verb:            VerbCall,
		AtBlock:         "latest",
		Chain:           "TESTNET",
		ContractAddress: "0x57dde83c18c0efe7123c36a52d704cf27d5c38cdf0b1e1edc3b0dae3ee4e374",
		EntryPoint:      "0x26813d396fdb198e9ead934e4f7a592a8b88a059e45ab0eb6ee53494e8d45b0",
		Calldata:        []string{"0x84"},
	}

	require.NoError(t, EncodeRequest(&buf, req))

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"), "request must be newline terminated")
	assert.Equal(t, 1, strings.Count(line, "\n"), "request must be a single line")
	assert.Contains(t, line, `"verb":"CALL"`)
}

func TestEncodeRequestRejectsUnknownVerb(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeRequest(&buf, &Request{Verb: "DEPLOY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported verb")
	assert.Zero(t, buf.Len())
}

func TestDecodeResponseOK(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"status":"ok","output":["0x1","0x2"]}`))
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, []string{"0x1", "0x2"}, resp.Output)
}

func TestDecodeResponseFee(t *testing.T) {
	resp, err := DecodeResponse([]byte(
		`{"status":"ok","fee":{"gas_consumed":"0x4eb","gas_price":"0x1","overall_fee":"0x4eb"}}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Fee)
	assert.Equal(t, "0x4eb", resp.Fee.OverallFee)
}

func TestDecodeResponseErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"not json", "segfault", "decode response"},
		{"missing status", `{"output":["0x1"]}`, "missing required field"},
		{"unknown status", `{"status":"maybe"}`, "invalid status value"},
		{"error without message", `{"status":"error"}`, "no error message"},
		{"failed without message", `{"status":"failed"}`, "no error message"},
		{"unknown field", `{"status":"ok","pid":42}`, "decode response"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tc.data))
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDecodeResponseExecutorError(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"status":"error","error":"contract not found"}`))
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, "contract not found", resp.Error)
}
