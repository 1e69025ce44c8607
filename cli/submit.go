package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/digitorus/pdfplace/config"
	"github.com/digitorus/pdfplace/geometry"
	"github.com/digitorus/pdfplace/session"
	"github.com/digitorus/pdfplace/transport"
)

var (
	ApplicationID int64
	BaseURL       string
	Download      bool
)

func SubmitCommand() {
	submitFlags := flag.NewFlagSet("submit", flag.ExitOnError)
	addPlacementFlags(submitFlags)
	submitFlags.Int64Var(&ApplicationID, "application", 0, "Application id (default: from config)")
	submitFlags.StringVar(&BaseURL, "base-url", "", "API base URL (default: from config)")
	submitFlags.BoolVar(&Download, "download", false, "Save signed_document.pdf to the output directory instead of submitting")

	submitFlags.Usage = func() {
		fmt.Printf("Usage: %s submit [options] <document-url> <signature-url>\n\n", os.Args[0])
		fmt.Println("Place a signature and submit the signed document to the application completion endpoint")
		fmt.Println("\nOptions:")
		submitFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s submit -application 42 -x 306 -y 396 https://example.com/doc.pdf signature.png\n", os.Args[0])
		fmt.Printf("  %s submit -download -config pdfplace.yaml doc.pdf signature.png\n", os.Args[0])
	}

	if err := submitFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse submit flags: %v", err)
		osExit(1)
	}

	if len(submitFlags.Args()) < 2 {
		submitFlags.Usage()
		osExit(1)
		return
	}

	SubmitPDF(submitFlags.Arg(0), submitFlags.Arg(1))
}

// SubmitPDF is replaced in tests.
var SubmitPDF = submitPDFImpl

func submitPDFImpl(document, signature string) {
	c, ok := mustLoadConfig()
	if !ok {
		return
	}
	if BaseURL != "" {
		c.API.BaseURL = BaseURL
	}
	if ApplicationID != 0 {
		c.API.ApplicationID = ApplicationID
	}

	if err := RunSession(context.Background(), NewSession(c), document, signature); err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	if Download {
		log.Printf("Signed PDF written to %s", c.Output.Dir)
		return
	}
	log.Printf("Signed PDF submitted for application %d", c.API.ApplicationID)
}

// NewSession returns a session wired to the collaborators configured in c.
func NewSession(c config.Config) *session.Session {
	fetcher := NewFetcher(c)
	return session.New(session.Config{
		Fetcher:       fetcher,
		Images:        &transport.ImageLoader{Fetcher: fetcher},
		Submitter:     NewSubmitter(c),
		Saver:         &transport.FileSaver{Dir: c.Output.Dir},
		Composite:     CompositeOptions(c),
		ApplicationID: c.API.ApplicationID,
		Logger:        newLogger(),
	})
}

// RunSession loads document and signature into s, places the signature as
// configured by the placement flags and then downloads or submits it.
func RunSession(ctx context.Context, s *session.Session, document, signature string) error {
	defer s.Close()

	if err := s.Load(ctx, document); err != nil {
		return err
	}
	if err := s.LoadSignatureImage(ctx, signature); err != nil {
		return err
	}
	if err := s.GoToPage(ctx, PageIndex); err != nil {
		return err
	}
	if _, err := s.SetZoom(ctx, Zoom); err != nil {
		return err
	}
	s.SetSizeScale(SizeScale)

	click := geometry.Point{X: AnchorX, Y: AnchorY}
	if AnchorX < 0 || AnchorY < 0 {
		vp, zoom := s.Viewport(), s.View().ZoomScale
		click = geometry.Point{X: vp.NativeWidth * zoom / 2, Y: vp.NativeHeight * zoom / 2}
	}
	if _, err := s.Click(click, &geometry.Point{}, geometry.Point{}); err != nil {
		return err
	}

	if Download {
		return s.Download(ctx)
	}
	if err := s.Send(ctx); err != nil {
		return err
	}
	if id, ok := <-s.Completed(); ok {
		log.Printf("Application %d completed", id)
	}
	return nil
}
