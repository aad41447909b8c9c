package fs

import "testing"

func TestClassifyByMimePrefix(t *testing.T) {
	tests := []struct {
		mime string
		want Category
	}{
		{"image/png", Pictures},
		{"image/svg+xml", Pictures},
		{"video/mp4", Videos},
		{"video/x-matroska", Videos},
		{"audio/mpeg", Music},
		{"audio/ogg", Music},
		{"application/pdf", Documents},
		{"application/msword", Documents},
		{"text/plain; charset=utf-8", Documents},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", Documents},
		{"application/vnd.ms-powerpoint.presentation", Documents},
		{"application/vnd.oasis.opendocument.spreadsheet", Documents},
		{"application/zip", Others},
		{"application/octet-stream", Others},
		{"", Others},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got := Classify(Entry{Name: "f", MimeType: tt.mime})
			if got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.mime, got, tt.want)
			}
		})
	}
}

func TestClassifyDirectoryIgnoresMime(t *testing.T) {
	for _, mime := range []string{"", "image/png", "video/mp4", "text/plain"} {
		got := Classify(Entry{Name: "dir", IsDir: true, MimeType: mime})
		if got != Directories {
			t.Fatalf("directory with mime %q classified as %s", mime, got)
		}
	}
}

func TestClassifyNeverReturnsAllFiles(t *testing.T) {
	for _, mime := range []string{"", "x/y", "all files", "image/"} {
		if got := ClassifyMime(mime); got == AllFiles {
			t.Fatalf("ClassifyMime(%q) returned the AllFiles pseudo-category", mime)
		}
	}
}

func TestCategoriesDisplayOrder(t *testing.T) {
	want := []Category{Directories, Documents, Pictures, Videos, Music, Others}
	got := Categories()
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("category %d: want %s, got %s", i, want[i], got[i])
		}
	}

	got[0] = Others
	if Categories()[0] != Directories {
		t.Fatal("Categories must return a copy")
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"", AllFiles, true},
		{"all", AllFiles, true},
		{"Folders", Directories, true},
		{"pictures", Pictures, true},
		{"MUSIC", Music, true},
		{"spreadsheets", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
