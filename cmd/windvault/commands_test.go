package main

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    windowResult
		wantErr string
	}{
		{
			name: "valid",
			raw:  "win-1=10500:4500",
			want: windowResult{WindowID: "win-1", Consumed: 10500, EndBalance: 4500},
		},
		{
			name: "zero values",
			raw:  "win-1=0:0",
			want: windowResult{WindowID: "win-1"},
		},
		{
			name:    "missing equals",
			raw:     "win-1",
			wantErr: `invalid result "win-1", want <window_id>=<consumed>:<end_balance>`,
		},
		{
			name:    "missing colon",
			raw:     "win-1=10500",
			wantErr: `invalid result "win-1=10500", want <window_id>=<consumed>:<end_balance>`,
		},
		{
			name:    "bad consumed",
			raw:     "win-1=abc:4500",
			wantErr: "invalid consumed",
		},
		{
			name:    "bad end balance",
			raw:     "win-1=10500:xyz",
			wantErr: "invalid end balance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWindowResult(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStringList(t *testing.T) {
	var list stringList
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&list, "snapshot", "repeatable")

	require.NoError(t, fs.Parse([]string{"--snapshot", "a=1", "--snapshot", "b=2"}))
	assert.Equal(t, stringList{"a=1", "b=2"}, list)
	assert.Equal(t, "a=1,b=2", list.String())
}

func TestPrettyPrintJSON(t *testing.T) {
	t.Run("indents valid json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, prettyPrintJSON(&buf, []byte(`{"b":1,"a":2}`)))
		assert.Equal(t, "{\n  \"a\": 2,\n  \"b\": 1\n}\n", buf.String())
	})

	t.Run("passes through invalid json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, prettyPrintJSON(&buf, []byte("not json")))
		assert.Equal(t, "not json", buf.String())
	})
}
