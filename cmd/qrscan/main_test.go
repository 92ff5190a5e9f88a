package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func writeQR(t *testing.T, contents string, size int) string {
	t.Helper()
	matrix, err := qrcode.NewQRCodeWriter().Encode(contents, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		t.Fatalf("Failed to encode QR: %v", err)
	}
	img := image.NewGray(image.Rect(0, 0, matrix.GetWidth(), matrix.GetHeight()))
	for y := 0; y < matrix.GetHeight(); y++ {
		for x := 0; x < matrix.GetWidth(); x++ {
			if !matrix.Get(x, y) {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}

	path := filepath.Join(t.TempDir(), "code.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	payload := `{"certificateId":"CERT-9","hash":"ff00"}`
	path := writeQR(t, payload, 240)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "Payload only on stdout", args: []string{path}, wantStdout: payload + "\n"},
		{name: "Verbose keeps stdout clean", args: []string{"-v", path}, wantStdout: payload + "\n"},
		{name: "Pixel limit", args: []string{"-max-pixels", "100", path}, wantCode: 1, wantStderr: "pixel limit"},
		{name: "Missing file", args: []string{filepath.Join(t.TempDir(), "absent.png")}, wantCode: 1, wantStderr: "absent.png"},
		{name: "Unknown profile", args: []string{"-profile", "kiosk", path}, wantCode: 2},
		{name: "No arguments", args: nil, wantCode: 2, wantStderr: "usage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != tt.wantCode {
				t.Fatalf("Exit code %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if tt.wantCode == 0 && stdout.String() != tt.wantStdout {
				t.Errorf("Stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if tt.wantCode != 0 && stdout.Len() != 0 {
				t.Errorf("Nothing should reach stdout on failure, got %q", stdout.String())
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("Stderr %q does not mention %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}
