package validation

import (
	"bytes"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
)

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
}

// DetectImageType sniffs the leading bytes of an upload and returns
// the image type, or ErrNotAnImage if the content is not a supported
// image format. Content sniffing is authoritative; the multipart
// Content-Type header is advisory only.
func DetectImageType(content []byte) (FileType, error) {
	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(content, signature) {
			return fileType, nil
		}
	}
	return "", ErrNotAnImage
}

func IsAllowedImageType(fileType FileType) bool {
	switch fileType {
	case FileTypePNG, FileTypeJPEG, FileTypeGIF:
		return true
	default:
		return false
	}
}
