package cli

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode string
		wantArgs []string
		wantErr  bool
	}{
		{name: "flag form", args: []string{"--mode=event-pipeline", "--prefetch=4"}, wantMode: ModePipeline, wantArgs: []string{"--prefetch=4"}},
		{name: "alias", args: []string{"--mode=webhook", "--port=3001"}, wantMode: ModeWebhook, wantArgs: []string{"--port=3001"}},
		{name: "subcommand shorthand", args: []string{"webhook-service", "--port=3001"}, wantMode: ModeWebhook, wantArgs: []string{"--port=3001"}},
		{name: "no mode", args: []string{"--port=3001"}, wantMode: "", wantArgs: []string{"--port=3001"}},
		{name: "unknown mode", args: []string{"--mode=kitchen"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, args, err := ParseMode(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", mode, tt.wantMode)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestPrintUsageListsModes(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, m := range []string{ModePipeline, ModeWebhook} {
		if !strings.Contains(buf.String(), m) {
			t.Errorf("usage does not mention %q", m)
		}
	}
}
