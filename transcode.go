package main

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// Transcode decodes raw image bytes and re-encodes them in the target format.
// Supported targets are "jpeg" (with quality 1-100) and "png". Input decoding
// covers jpeg, png, gif and webp via the registered codecs.
func Transcode(raw []byte, format string, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &TranscodeError{Reason: "input is not a decodable image", Err: err}
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, &TranscodeError{Reason: "jpeg encode", Err: err}
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, &TranscodeError{Reason: "png encode", Err: err}
		}
	default:
		return nil, &TranscodeError{Reason: fmt.Sprintf("unsupported output format %q", format)}
	}

	return buf.Bytes(), nil
}

// OutputExtension returns the file extension for a target format.
func OutputExtension(format string) string {
	switch format {
	case "jpeg", "jpg":
		return ".jpg"
	case "png":
		return ".png"
	default:
		return "." + format
	}
}

// OutputContentType returns the MIME type for a target format.
func OutputContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
