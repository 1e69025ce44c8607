package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/digitorus/pdfplace"
)

// PageInfo is the displayed size of one page.
type PageInfo struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate int     `json:"rotate,omitempty"`
}

// DocumentInfo is printed by the info command.
type DocumentInfo struct {
	Pages     int        `json:"pages"`
	PageSizes []PageInfo `json:"page_sizes"`
}

func InfoCommand() {
	infoFlags := flag.NewFlagSet("info", flag.ExitOnError)
	infoFlags.StringVar(&ConfigFile, "config", "", "Configuration file (TOML, or YAML by extension)")

	infoFlags.Usage = func() {
		fmt.Printf("Usage: %s info [options] <input.pdf>\n\n", os.Args[0])
		fmt.Println("Show the number of pages and the displayed size of each page in points")
		fmt.Println("\nOptions:")
		infoFlags.PrintDefaults()
	}

	if err := infoFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse info flags: %v", err)
		osExit(1)
	}

	if len(infoFlags.Args()) < 1 {
		infoFlags.Usage()
		osExit(1)
		return
	}

	InfoPDF(infoFlags.Arg(0))
}

func InfoPDF(input string) {
	c, ok := mustLoadConfig()
	if !ok {
		return
	}

	data, err := NewFetcher(c).Fetch(context.Background(), input)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	info, err := DescribePDF(data)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	jsonData, err := json.Marshal(info)
	if err != nil {
		fmt.Println(err)
		osExit(1)
		return
	}
	fmt.Println(string(jsonData))
}

// DescribePDF measures every page of data.
func DescribePDF(data []byte) (*DocumentInfo, error) {
	doc, err := pdfplace.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	info := &DocumentInfo{Pages: doc.NumPages()}
	for i := 1; i <= doc.NumPages(); i++ {
		vp, err := doc.Viewport(i)
		if err != nil {
			return nil, err
		}
		info.PageSizes = append(info.PageSizes, PageInfo{
			Page:   i,
			Width:  vp.NativeWidth,
			Height: vp.NativeHeight,
			Rotate: vp.Rotate,
		})
	}
	return info, nil
}
