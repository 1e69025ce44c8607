package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/digitorus/pdfplace"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/images"
)

var (
	PageIndex           int
	AnchorX, AnchorY    float64
	SizeScale, Zoom     float64
	RefWidth, RefHeight float64
)

func addPlacementFlags(fs *flag.FlagSet) {
	fs.StringVar(&ConfigFile, "config", "", "Configuration file (TOML, or YAML by extension)")
	fs.IntVar(&PageIndex, "page", 1, "Page to place the signature on (1-based)")
	fs.Float64Var(&AnchorX, "x", -1, "Horizontal centre of the signature from the left edge of the page (default: page centre)")
	fs.Float64Var(&AnchorY, "y", -1, "Vertical centre of the signature from the top edge of the page (default: page centre)")
	fs.Float64Var(&Zoom, "zoom", 1, "Zoom at which -x and -y were measured")
	fs.Float64Var(&SizeScale, "scale", 1, "Signature size relative to its pixel size (0.1 - 2.0)")
	fs.BoolVar(&Verbose, "v", false, "Verbose logging")
}

func PlaceCommand() {
	placeFlags := flag.NewFlagSet("place", flag.ExitOnError)
	addPlacementFlags(placeFlags)
	placeFlags.Float64Var(&RefWidth, "ref-width", 0, "Page width -x was measured against (default: the page's own width in points)")
	placeFlags.Float64Var(&RefHeight, "ref-height", 0, "Page height -y was measured against")

	placeFlags.Usage = func() {
		fmt.Printf("Usage: %s place [options] <input.pdf> <signature.png> <output.pdf>\n\n", os.Args[0])
		fmt.Println("Place a signature image on a page of a PDF file")
		fmt.Println("\nInput and signature may be file paths, http(s) URLs or data URLs.")
		fmt.Println("\nOptions:")
		placeFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s place -x 306 -y 396 -scale 0.5 input.pdf signature.png output.pdf\n", os.Args[0])
		fmt.Printf("  %s place -page 2 -zoom 1.4 -x 420 -y 900 input.pdf signature.png output.pdf\n", os.Args[0])
	}

	if err := placeFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse place flags: %v", err)
		osExit(1)
	}

	if len(placeFlags.Args()) < 3 {
		placeFlags.Usage()
		osExit(1)
		return
	}

	args := placeFlags.Args()
	PlacePDF(args[0], args[1], args[2])
}

// PlacePDF is replaced in tests.
var PlacePDF = placePDFImpl

func placePDFImpl(input, signature, output string) {
	c, ok := mustLoadConfig()
	if !ok {
		return
	}
	fetcher := NewFetcher(c)
	ctx := context.Background()

	data, err := fetcher.Fetch(ctx, input)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	doc, err := pdfplace.OpenBytes(data)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	doc.SetCompression(c.Composite.CompressLevel)
	if c.Composite.UpdateInfo {
		doc.SetProducer(c.Composite.Producer)
	}
	doc.SetValidate(c.Composite.Validate)

	sigData, err := fetcher.Fetch(ctx, signature)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	img, err := doc.AddImage(imageName(signature), sigData)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	pb := doc.Place(img).Page(PageIndex).Scale(SizeScale)
	if RefWidth > 0 && RefHeight > 0 {
		pb.Reference(RefWidth, RefHeight)
	}
	if AnchorX >= 0 && AnchorY >= 0 {
		anchor, err := geometry.ScreenToUserSpace(geometry.Point{X: AnchorX, Y: AnchorY}, &geometry.Point{}, geometry.Point{}, Zoom)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
		pb.Anchor(anchor.X, anchor.Y)
	}

	outputFile, err := os.Create(output)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	defer func() {
		if err := outputFile.Close(); err != nil {
			log.Printf("error closing output file: %v", err)
		}
	}()

	res, err := doc.Write(outputFile)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	for _, p := range res.Placements {
		log.Printf("Signature placed on page %d at [%.2f %.2f %.2f %.2f]", p.Page, p.Rect[0], p.Rect[1], p.Rect[2], p.Rect[3])
	}
	log.Println("Signed PDF written to " + output)
}

func imageName(location string) string {
	if images.IsDataURL(location) {
		return "signature"
	}
	return filepath.Base(location)
}
