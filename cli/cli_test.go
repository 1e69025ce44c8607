package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/digitorus/pdfplace"
	"github.com/digitorus/pdfplace/config"
	"github.com/digitorus/pdfplace/internal/testpdf"
)

func writeFixtures(t *testing.T) (dir, input, signature string) {
	t.Helper()
	dir = t.TempDir()

	input = filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, testpdf.Letter(2), 0o644); err != nil {
		t.Fatal(err)
	}

	src := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	for x := 0; x < 300; x++ {
		src.Set(x, 50, color.NRGBA{A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	signature = filepath.Join(dir, "signature.png")
	if err := os.WriteFile(signature, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, input, signature
}

// resetFlags restores the package level flag values after a test.
func resetFlags(t *testing.T) {
	t.Helper()
	PageIndex, AnchorX, AnchorY, SizeScale, Zoom = 1, -1, -1, 1, 1
	RefWidth, RefHeight = 0, 0
	ConfigFile, Verbose, Download, BaseURL, ApplicationID = "", false, false, "", 0
	t.Cleanup(func() {
		PageIndex, AnchorX, AnchorY, SizeScale, Zoom = 1, -1, -1, 1, 1
		RefWidth, RefHeight = 0, 0
		ConfigFile, Verbose, Download, BaseURL, ApplicationID = "", false, false, "", 0
	})
}

func TestUsage(t *testing.T) {
	origExit := osExit
	defer func() { osExit = origExit }()

	var exitCode int
	osExit = func(code int) { exitCode = code }

	Usage()
	if exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode)
	}
}

func TestPlaceCommand_FlagParsing(t *testing.T) {
	resetFlags(t)
	origArgs := os.Args
	origPlacePDF := PlacePDF
	defer func() {
		os.Args = origArgs
		PlacePDF = origPlacePDF
	}()

	called := false
	PlacePDF = func(input, signature, output string) {
		called = true
		if input != "input.pdf" || signature != "sig.png" || output != "output.pdf" {
			t.Errorf("unexpected args: %s %s %s", input, signature, output)
		}
	}

	os.Args = []string{"cmd", "place", "-page", "2", "-x", "100", "-y", "200", "-scale", "0.5", "-zoom", "1.4", "input.pdf", "sig.png", "output.pdf"}
	PlaceCommand()
	if !called {
		t.Error("PlacePDF was not called for valid args")
	}
	if PageIndex != 2 || AnchorX != 100 || AnchorY != 200 || SizeScale != 0.5 || Zoom != 1.4 {
		t.Errorf("flags not parsed: page=%d x=%v y=%v scale=%v zoom=%v", PageIndex, AnchorX, AnchorY, SizeScale, Zoom)
	}

	// Insufficient args call Usage and exit.
	called = false
	origExit := osExit
	defer func() { osExit = origExit }()
	var exitCode int
	osExit = func(code int) { exitCode = code }

	os.Args = []string{"cmd", "place", "input.pdf"}
	PlaceCommand()
	if exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode)
	}
	if called {
		t.Error("PlacePDF should not be called for insufficient args")
	}
}

func TestPlacePDF(t *testing.T) {
	resetFlags(t)
	dir, input, signature := writeFixtures(t)
	output := filepath.Join(dir, "output.pdf")

	origExit := osExit
	defer func() { osExit = origExit }()
	osExit = func(code int) { t.Fatalf("unexpected exit %d", code) }

	AnchorX, AnchorY, SizeScale = 306, 396, 0.5
	PlacePDF(input, signature, output)

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	source, _ := os.ReadFile(input)
	if !bytes.HasPrefix(data, source) {
		t.Error("output does not start with the input document")
	}
	if _, err := pdfplace.OpenBytes(data); err != nil {
		t.Errorf("output cannot be opened: %v", err)
	}
}

func TestPlacePDF_MissingInput(t *testing.T) {
	resetFlags(t)
	dir, _, signature := writeFixtures(t)

	origExit := osExit
	defer func() { osExit = origExit }()
	var exitCode int
	osExit = func(code int) { exitCode = code }

	PlacePDF(filepath.Join(dir, "missing.pdf"), signature, filepath.Join(dir, "out.pdf"))
	if exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode)
	}
}

func TestDescribePDF(t *testing.T) {
	info, err := DescribePDF(testpdf.Build(testpdf.Options{Pages: []testpdf.Page{
		{MediaBox: []float64{0, 0, 612, 792}},
		{MediaBox: []float64{0, 0, 595, 842}, Rotate: 90},
	}}))
	if err != nil {
		t.Fatal(err)
	}
	if info.Pages != 2 || len(info.PageSizes) != 2 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if got := info.PageSizes[1]; got.Width != 842 || got.Height != 595 || got.Rotate != 90 {
		t.Errorf("page 2 = %+v", got)
	}

	if _, err := DescribePDF([]byte("not a pdf")); err == nil {
		t.Error("expected error for invalid document")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Pad.Width != config.Default().Pad.Width {
		t.Error("expected default configuration")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfplace.toml")
	content := "[api]\nbase_url = \"https://api.example.com\"\napplication_id = 9\n\n[composite]\ncompress_level = -1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.API.ApplicationID != 9 || c.API.BaseURL != "https://api.example.com" {
		t.Errorf("unexpected api settings %+v", c.API)
	}
	if config.Settings.API.ApplicationID != 9 {
		t.Error("config.Settings was not updated")
	}
	if c.Pad.PenWidth != config.Default().Pad.PenWidth {
		t.Error("defaults must survive for unset keys")
	}
}

func TestRunSessionSubmit(t *testing.T) {
	resetFlags(t)
	_, input, signature := writeFixtures(t)

	var received atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/applications/list/7/sign/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		file, _, err := r.FormFile("ready_document")
		if err != nil {
			t.Errorf("missing ready_document: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		received.Store(int64(len(data)))
	}))
	defer srv.Close()

	c := config.Default()
	c.API.BaseURL = srv.URL
	c.API.ApplicationID = 7

	PageIndex = 2
	if err := RunSession(context.Background(), NewSession(c), input, signature); err != nil {
		t.Fatal(err)
	}
	if received.Load() == 0 {
		t.Error("no document was submitted")
	}
}

func TestRunSessionDownload(t *testing.T) {
	resetFlags(t)
	dir, input, signature := writeFixtures(t)

	c := config.Default()
	c.Output.Dir = filepath.Join(dir, "out")

	Download = true
	AnchorX, AnchorY, Zoom = 612, 792, 2
	if err := RunSession(context.Background(), NewSession(c), input, signature); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(c.Output.Dir, "signed_document.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pdfplace.OpenBytes(data); err != nil {
		t.Errorf("output cannot be opened: %v", err)
	}
}

func TestRunSessionLoadFailure(t *testing.T) {
	resetFlags(t)
	dir, _, signature := writeFixtures(t)

	err := RunSession(context.Background(), NewSession(config.Default()), filepath.Join(dir, "missing.pdf"), signature)
	if err == nil {
		t.Error("expected error for missing document")
	}
}
