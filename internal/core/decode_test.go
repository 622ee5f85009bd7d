package core

import (
	"testing"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		enc     string
		want    string
		wantErr bool
	}{
		{name: "plain utf-8", data: []byte("id,name\n1,Caffè"), want: "id,name\n1,Caffè"},
		{name: "BOM stripped", data: append([]byte{0xEF, 0xBB, 0xBF}, "id\n"...), want: "id\n"},
		{name: "explicit utf-8", data: []byte("a"), enc: "UTF-8", want: "a"},
		{name: "windows-1252", data: []byte{'C', 'a', 'f', 'f', 0xE8}, enc: "windows-1252", want: "Caffè"},
		{name: "latin1 alias", data: []byte{'p', 'i', 0xF1, 'a'}, enc: "latin1", want: "piña"},
		{name: "invalid utf-8 replaced", data: []byte{'a', 0xFF, 'b'}, want: "a\uFFFDb"},
		{name: "unknown encoding", data: []byte("a"), enc: "ebcdic", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data, tt.enc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeText() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
