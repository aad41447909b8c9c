package fs

import (
	"encoding/json"
	"testing"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1, "1.00 B"},
		{500, "500.00 B"},
		{1023, "1023.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{2048, "2.00 KB"},
		{1024 * 1024, "1.00 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
		{3 * 1024 * 1024 * 1024 * 1024 * 1024, "3072.00 TB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestEntryUnmarshalSizeVariants(t *testing.T) {
	payload := `[
		{"name":"a.txt","is_dir":false,"size":2048,"mimeType":"text/plain"},
		{"name":"dir","is_dir":true},
		{"name":"legacy.bin","is_dir":false,"size":"3.00 KB"},
		{"name":"nulls","is_dir":false,"size":null,"mimeType":null}
	]`

	var entries []Entry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	if entries[0].Size == nil || *entries[0].Size != 2048 || entries[0].MimeType != "text/plain" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if !entries[1].IsDir || entries[1].HasSize() {
		t.Fatalf("directory entry should have no size: %+v", entries[1])
	}
	if entries[2].HasSize() || entries[2].SizeText != "3.00 KB" {
		t.Fatalf("legacy size not preserved: %+v", entries[2])
	}
	if entries[3].HasSize() || entries[3].MimeType != "" {
		t.Fatalf("null fields should be absent: %+v", entries[3])
	}
}

func TestEntryMarshalRoundTripsWireShape(t *testing.T) {
	e := Entry{Name: "clip.mp4", Size: SizeOf(10), MimeType: "video/mp4"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"clip.mp4","is_dir":false,"size":10,"mimeType":"video/mp4"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestValidName(t *testing.T) {
	valid := []string{"a.txt", "with space", "ünïcode", ".hidden"}
	invalid := []string{"", ".", "..", "a/b", "/abs"}
	for _, name := range valid {
		if !ValidName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	for _, name := range invalid {
		if ValidName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
