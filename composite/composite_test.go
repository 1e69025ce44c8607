package composite

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/digitorus/pdf"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
	ipdf "github.com/digitorus/pdfplace/internal/pdf"
	"github.com/digitorus/pdfplace/internal/testpdf"
	"github.com/digitorus/pdfplace/overlay"
)

const eps = 1e-6

func pngImage(t *testing.T, w, h int, opaque bool) *images.Image {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if !opaque && x%2 == 0 {
				a = 0
			}
			src.SetNRGBA(x, y, color.NRGBA{0, 0, 128, a})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	img, err := images.Decode("sig.png", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func jpegImage(t *testing.T, w, h int) *images.Image {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	img, err := images.Decode("sig.jpg", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func reopen(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to re-read output: %v", err)
	}
	return r
}

func nearRect(a, b [4]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestCompositeCenterOfLetterPage(t *testing.T) {
	doc := testpdf.Letter(1)
	placement := &overlay.Placement{Anchor: geometry.Point{X: 306, Y: 396}, SizeScale: 0.5, PageIndex: 1}

	res, err := CompositeResult(doc, 1, placement, pngImage(t, 300, 100, true), geometry.Size{Width: 612, Height: 792}, &Options{})
	if err != nil {
		t.Fatalf("CompositeResult() error = %v", err)
	}

	want := [4]float64{231, 371, 381, 421}
	if !nearRect(res.Rect, want) {
		t.Errorf("rect = %v, want %v", res.Rect, want)
	}
	if res.Matrix != (Matrix{150, 0, 0, 50, 231, 371}) {
		t.Errorf("matrix = %v", res.Matrix)
	}

	if !bytes.HasPrefix(res.Data, doc) {
		t.Error("original bytes must be preserved as prefix")
	}
	if !bytes.Contains(res.Data, []byte("q 150 0 0 50 231 371 cm /Sig1 Do Q")) {
		t.Error("output is missing the signature drawing operators")
	}
	if !strings.HasSuffix(string(res.Data), "%%EOF\n") {
		t.Error("output must end with an end-of-file marker")
	}
}

func TestCompositeOutputIsReadable(t *testing.T) {
	doc := testpdf.Letter(2)
	placement := &overlay.Placement{Anchor: geometry.Point{X: 100, Y: 100}, SizeScale: 1, PageIndex: 2}

	out, err := Composite(doc, 2, placement, pngImage(t, 40, 20, false), geometry.Size{Width: 612, Height: 792}, nil)
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	r := reopen(t, out)
	if r.NumPage() != 2 {
		t.Fatalf("NumPage() = %d, want 2", r.NumPage())
	}

	page := r.Page(2).V
	xobj := page.Key("Resources").Key("XObject").Key("Sig1")
	if xobj.Kind() != pdf.Stream {
		t.Fatalf("Sig1 kind = %v, want stream", xobj.Kind())
	}
	if xobj.Key("Width").Int64() != 40 || xobj.Key("Height").Int64() != 20 {
		t.Errorf("unexpected image size %v x %v", xobj.Key("Width"), xobj.Key("Height"))
	}
	if xobj.Key("SMask").IsNull() {
		t.Error("transparent image must carry a soft mask")
	}
	if page.Key("Contents").Len() != 3 {
		t.Errorf("contents length = %d, want 3", page.Key("Contents").Len())
	}
	if page.Key("Parent").Key("Type").Name() != "Pages" {
		t.Error("page must keep its parent reference")
	}

	content, err := testpdf.Contents(page)
	if err != nil {
		t.Fatal(err)
	}
	s := string(content)
	if !strings.HasPrefix(s, "q\n") || !strings.Contains(s, "0 0 m 10 10 l S") || !strings.Contains(s, "/Sig1 Do Q") {
		t.Errorf("unexpected page content %q", s)
	}

	// First page is untouched.
	if r.Page(1).V.Key("Resources").Key("XObject").Kind() != pdf.Null {
		t.Error("page 1 should not have been modified")
	}
}

func TestCompositeYAxisFlip(t *testing.T) {
	img := pngImage(t, 300, 100, true)

	for _, h := range []float64{792, 842, 400} {
		doc := testpdf.Build(testpdf.Options{Pages: []testpdf.Page{{MediaBox: []float64{0, 0, 612, h}}}})
		placement := &overlay.Placement{Anchor: geometry.Point{X: 306, Y: 0}, SizeScale: 0.5}

		res, err := CompositeResult(doc, 1, placement, img, geometry.Size{Width: 612, Height: h}, &Options{})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(res.Rect[1]-(h-25)) > eps {
			t.Errorf("height %v: lower y = %v, want %v", h, res.Rect[1], h-25)
		}
	}
}

func TestCompositeUsesParsedPageSize(t *testing.T) {
	doc := testpdf.Letter(1)
	// The renderer reported the page at half size, so anchors are in half units.
	placement := &overlay.Placement{Anchor: geometry.Point{X: 153, Y: 198}, SizeScale: 0.5}

	res, err := CompositeResult(doc, 1, placement, pngImage(t, 300, 100, true), geometry.Size{Width: 306, Height: 396}, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := [4]float64{156, 346, 456, 446}
	if !nearRect(res.Rect, want) {
		t.Errorf("rect = %v, want %v", res.Rect, want)
	}
}

func TestCompositeRotatedPages(t *testing.T) {
	img := pngImage(t, 300, 100, true)

	tests := []struct {
		rotate int
		native geometry.Size
		anchor geometry.Point
		matrix Matrix
	}{
		{0, geometry.Size{Width: 612, Height: 792}, geometry.Point{X: 306, Y: 396}, Matrix{150, 0, 0, 50, 231, 371}},
		{90, geometry.Size{Width: 792, Height: 612}, geometry.Point{X: 396, Y: 306}, Matrix{0, 150, -50, 0, 331, 321}},
		{180, geometry.Size{Width: 612, Height: 792}, geometry.Point{X: 306, Y: 396}, Matrix{-150, 0, 0, -50, 381, 421}},
		{270, geometry.Size{Width: 792, Height: 612}, geometry.Point{X: 396, Y: 306}, Matrix{0, -150, 50, 0, 281, 471}},
	}

	for _, tt := range tests {
		doc := testpdf.Build(testpdf.Options{Pages: []testpdf.Page{{MediaBox: []float64{0, 0, 612, 792}, Rotate: tt.rotate, Content: "0 0 m"}}})
		placement := &overlay.Placement{Anchor: tt.anchor, SizeScale: 0.5}

		res, err := CompositeResult(doc, 1, placement, img, tt.native, &Options{})
		if err != nil {
			t.Fatalf("rotate %d: %v", tt.rotate, err)
		}
		for i := range tt.matrix {
			if math.Abs(res.Matrix[i]-tt.matrix[i]) > eps {
				t.Errorf("rotate %d: matrix = %v, want %v", tt.rotate, res.Matrix, tt.matrix)
				break
			}
		}
		cx, cy := (res.Rect[0]+res.Rect[2])/2, (res.Rect[1]+res.Rect[3])/2
		if math.Abs(cx-306) > eps || math.Abs(cy-396) > eps {
			t.Errorf("rotate %d: centre = (%v, %v), want page centre", tt.rotate, cx, cy)
		}
	}
}

func TestCompositeCropBox(t *testing.T) {
	doc := testpdf.Build(testpdf.Options{Pages: []testpdf.Page{{
		MediaBox: []float64{0, 0, 612, 792},
		CropBox:  []float64{100, 100, 400, 500},
	}}})
	placement := &overlay.Placement{Anchor: geometry.Point{X: 0, Y: 0}, SizeScale: 1}

	res, err := CompositeResult(doc, 1, placement, pngImage(t, 10, 10, true), geometry.Size{Width: 300, Height: 400}, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	// Top-left corner of the visible area is (100, 500).
	want := [4]float64{95, 495, 105, 505}
	if !nearRect(res.Rect, want) {
		t.Errorf("rect = %v, want %v", res.Rect, want)
	}
}

func TestCompositeRequiresPlacementAndImage(t *testing.T) {
	garbage := []byte("this is not a pdf")
	img := pngImage(t, 1, 1, true)
	placement := &overlay.Placement{SizeScale: 1}

	tests := []struct {
		name      string
		placement *overlay.Placement
		img       *images.Image
	}{
		{"no placement", nil, img},
		{"no image", placement, nil},
		{"neither", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Composite(garbage, 1, tt.placement, tt.img, geometry.Size{Width: 1, Height: 1}, nil)
			var incomplete *IncompleteSignatureError
			if !errors.As(err, &incomplete) {
				t.Fatalf("expected IncompleteSignatureError, got %v", err)
			}
			if incomplete.MissingPlacement != (tt.placement == nil) || incomplete.MissingImage != (tt.img == nil) {
				t.Errorf("unexpected error detail %+v", incomplete)
			}
		})
	}
}

func TestCompositeMalformedDocument(t *testing.T) {
	placement := &overlay.Placement{SizeScale: 1}
	for _, doc := range [][]byte{nil, []byte("garbage"), []byte("%PDF-1.7\n%%EOF\n")} {
		_, err := Composite(doc, 1, placement, pngImage(t, 1, 1, true), geometry.Size{Width: 1, Height: 1}, nil)
		var malformed *MalformedDocumentError
		if !errors.As(err, &malformed) {
			t.Errorf("%q: expected MalformedDocumentError, got %v", doc, err)
		}
	}
}

func TestCompositePageOutOfRange(t *testing.T) {
	doc := testpdf.Letter(1)
	placement := &overlay.Placement{SizeScale: 1}
	for _, page := range []int{0, 2, -1} {
		_, err := Composite(doc, page, placement, pngImage(t, 1, 1, true), geometry.Size{Width: 612, Height: 792}, nil)
		var outOfRange *PageIndexOutOfRangeError
		if !errors.As(err, &outOfRange) {
			t.Fatalf("page %d: expected PageIndexOutOfRangeError, got %v", page, err)
		}
		if outOfRange.Total != 1 || outOfRange.Page != page {
			t.Errorf("unexpected error detail %+v", outOfRange)
		}
	}
}

func TestCompositeXrefStream(t *testing.T) {
	doc := testpdf.Build(testpdf.Options{
		XrefStream: true,
		Pages: []testpdf.Page{
			{MediaBox: []float64{0, 0, 612, 792}, Content: "0 0 m 1 1 l S"},
			{MediaBox: []float64{0, 0, 612, 792}},
		},
	})
	if reopen(t, doc).XrefInformation.Type != "stream" {
		t.Fatal("fixture should use an xref stream")
	}

	placement := &overlay.Placement{Anchor: geometry.Point{X: 306, Y: 396}, SizeScale: 0.5}
	out, err := Composite(doc, 2, placement, jpegImage(t, 30, 10), geometry.Size{Width: 612, Height: 792}, nil)
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if bytes.Contains(out[len(doc):], []byte("\nxref\n")) {
		t.Error("stream sources must not get a classic xref table")
	}

	r := reopen(t, out)
	if r.XrefInformation.Type != "stream" {
		t.Errorf("xref type = %s, want stream", r.XrefInformation.Type)
	}
	xobj := r.Page(2).V.Key("Resources").Key("XObject").Key("Sig1")
	if xobj.Key("Filter").Name() != "DCTDecode" {
		t.Errorf("opaque JPEG should be passed through, got filter %v", xobj.Key("Filter"))
	}
	// Page without content only gets the signature stream.
	if got := r.Page(2).V.Key("Contents").Len(); got != 1 {
		t.Errorf("contents length = %d, want 1", got)
	}
}

func TestCompositeUniqueResourceName(t *testing.T) {
	doc := testpdf.Build(testpdf.Options{Pages: []testpdf.Page{{
		MediaBox: []float64{0, 0, 612, 792},
		XObjects: []string{"Sig1"},
	}}})
	placement := &overlay.Placement{Anchor: geometry.Point{X: 10, Y: 10}, SizeScale: 1}

	out, err := Composite(doc, 1, placement, pngImage(t, 2, 2, true), geometry.Size{Width: 612, Height: 792}, nil)
	if err != nil {
		t.Fatal(err)
	}
	xobjects := reopen(t, out).Page(1).V.Key("Resources").Key("XObject")
	if xobjects.Key("Sig1").Key("Width").Int64() != 1 {
		t.Error("existing XObject must be kept")
	}
	if xobjects.Key("Sig2").Key("Width").Int64() != 2 {
		t.Error("signature should be registered as Sig2")
	}
	if procSet := reopen(t, out).Page(1).V.Key("Resources").Key("ProcSet"); procSet.Len() != 2 {
		t.Errorf("other resources must be kept, ProcSet = %v", procSet)
	}
}

func TestCompositeInheritedMediaBox(t *testing.T) {
	doc := testpdf.Build(testpdf.Options{
		InheritedMediaBox: []float64{0, 0, 595, 842},
		Pages:             []testpdf.Page{{}},
	})
	placement := &overlay.Placement{Anchor: geometry.Point{X: 297.5, Y: 421}, SizeScale: 1}

	res, err := CompositeResult(doc, 1, placement, pngImage(t, 100, 100, true), geometry.Size{Width: 595, Height: 842}, &Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := [4]float64{247.5, 371, 347.5, 471}
	if !nearRect(res.Rect, want) {
		t.Errorf("rect = %v, want %v", res.Rect, want)
	}
	page := reopen(t, res.Data).Page(1).V
	if page.Key("MediaBox").IsNull() {
		// MediaBox stays inherited.
		if ipdf.Inherited(page, "MediaBox").Len() != 4 {
			t.Error("inherited MediaBox lost")
		}
	}
}

func TestCompositeUpdateInfo(t *testing.T) {
	doc := testpdf.Letter(1)
	placement := &overlay.Placement{Anchor: geometry.Point{X: 10, Y: 10}, SizeScale: 1}
	opts := &Options{
		UpdateInfo: true,
		ModDate:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Producer:   "pdfplace",
	}

	out, err := Composite(doc, 1, placement, pngImage(t, 2, 2, true), geometry.Size{Width: 612, Height: 792}, opts)
	if err != nil {
		t.Fatal(err)
	}
	info := reopen(t, out).Trailer().Key("Info")
	if got := info.Key("Producer").Text(); got != "pdfplace" {
		t.Errorf("Producer = %q", got)
	}
	if got := info.Key("ModDate").RawString(); got != "D:20240301120000+00'00'" {
		t.Errorf("ModDate = %q", got)
	}
	if got := info.Key("Title").RawString(); got != "Fixture" {
		t.Errorf("existing Title lost, got %q", got)
	}
}

func TestCompositeValidates(t *testing.T) {
	doc := testpdf.Letter(1)
	placement := &overlay.Placement{Anchor: geometry.Point{X: 306, Y: 396}, SizeScale: 0.5}
	opts := DefaultOptions()
	opts.Validate = true

	if _, err := Composite(doc, 1, placement, pngImage(t, 30, 10, false), geometry.Size{Width: 612, Height: 792}, opts); err != nil {
		t.Fatalf("Composite() with validation error = %v", err)
	}
}

func TestCompositeTwice(t *testing.T) {
	doc := testpdf.Letter(1)
	placement := &overlay.Placement{Anchor: geometry.Point{X: 100, Y: 100}, SizeScale: 1}
	img := pngImage(t, 4, 4, true)
	native := geometry.Size{Width: 612, Height: 792}

	once, err := Composite(doc, 1, placement, img, native, nil)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Composite(once, 1, placement, img, native, nil)
	if err != nil {
		t.Fatalf("second composite failed: %v", err)
	}
	xobjects := reopen(t, twice).Page(1).V.Key("Resources").Key("XObject")
	if xobjects.Key("Sig1").IsNull() || xobjects.Key("Sig2").IsNull() {
		t.Error("both signatures should be present")
	}
}
