package contenttype

import "testing"

func TestClassifyMimeWins(t *testing.T) {
	got := Classify("text/css; charset=utf-8", "/app.js")
	if got != CSS {
		t.Fatalf("expected CSS, got %s", got)
	}
}

func TestClassifyFallsBackToSuffix(t *testing.T) {
	got := Classify("", "/bundle.mjs")
	if got != JS {
		t.Fatalf("expected JS, got %s", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	got := Classify("application/octet-stream", "/data.bin")
	if got != Other {
		t.Fatalf("expected Other, got %s", got)
	}
}

func TestClassifyImages(t *testing.T) {
	cases := []struct {
		header, path string
		want         Type
	}{
		{"image/webp", "", ImageWebP},
		{"image/avif", "", ImageAVIF},
		{"", "/photo.webp", ImageWebP},
		{"", "/photo.avif", ImageAVIF},
	}
	for _, c := range cases {
		if got := Classify(c.header, c.path); got != c.want {
			t.Errorf("Classify(%q,%q) = %s, want %s", c.header, c.path, got, c.want)
		}
	}
}

func TestIsTransformable(t *testing.T) {
	if !IsTransformable(JS) || !IsTransformable(ImageAVIF) {
		t.Fatal("expected js and avif to be transformable")
	}
	if IsTransformable(Other) {
		t.Fatal("expected other to not be transformable")
	}
}
