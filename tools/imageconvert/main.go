// Command imageconvert rasterizes a boot-splash PNG/JPEG into the
// XRGB8888 byte stream console.Console.Flush expects, for boards that
// embed a static splash image instead of (or ahead of) rendered status
// text.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/phoenix-rtos/plo-sub001/tools/imageconvert/imageconv"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: imageconvert <input-image> <output-binary>\n")
		fmt.Fprintf(os.Stderr, "Converts an image to the XRGB8888 byte stream console.Console.Flush expects:\n")
		fmt.Fprintf(os.Stderr, "  8 bytes: width,height (uint32 little-endian each)\n")
		fmt.Fprintf(os.Stderr, "  width*height*4 bytes: BGRX8888 pixel data\n")
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	inputPath, outputPath := flag.Arg(0), flag.Arg(1)

	file, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening image: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding image: %v\n", err)
		os.Exit(1)
	}

	header, pix := imageconv.Convert(img)
	fmt.Printf("Image size: %d x %d\n", header.Width, header.Height)

	outFile, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	if err := imageconv.WriteHeader(func(b []byte) error {
		_, err := outFile.Write(b)
		return err
	}, header); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
		os.Exit(1)
	}
	if _, err := outFile.Write(pix); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing pixel data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(pix), outputPath)
}
