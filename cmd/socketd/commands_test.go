package main

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		asJSON  bool
		want    string
		wantErr bool
	}{
		{name: "plain text", arg: "hello", want: `"hello"`},
		{name: "plain text that looks like json", arg: `{"a":1}`, want: `"{\"a\":1}"`},
		{name: "json object", arg: `{"a":1}`, asJSON: true, want: `{"a":1}`},
		{name: "json number", arg: "42", asJSON: true, want: "42"},
		{name: "invalid json", arg: "{oops", asJSON: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePayload(tt.arg, tt.asJSON)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(got)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("payload = %s, want %s", data, tt.want)
			}
		})
	}
}
