// Package avatar turns uploaded profile pictures into fixed-size PNG
// blobs suitable for storing on the user document.
package avatar

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Canvas size every stored avatar is normalised to.
const (
	Width  = 250
	Height = 250
)

// MaxUploadBytes caps the accepted file size at 1MB, matching the public
// upload contract.
const MaxUploadBytes = 1000000

var ErrInvalidImage = errors.New("avatar: file is not a decodable image")

// AllowedExtension reports whether the uploaded filename carries one of
// the accepted image extensions. This is a filename check only; the
// upload is not content-sniffed.
func AllowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Process decodes the upload, fills a Width x Height canvas with the
// centre of the image and re-encodes it as PNG.
func Process(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}

	resized := imaging.Fill(img, Width, Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
