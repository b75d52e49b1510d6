package extract

import (
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// containerKind is the coarse bucket magic-byte sniffing resolves a file
// to, used only to break ties for files with a whitelisted image extension.
type containerKind int

const (
	containerUnknown containerKind = iota
	containerJPEG
	containerPNG
	containerTIFF
	containerWebP
	containerHEIF
	containerVideo
)

// sniffContainer reads the file's leading bytes to identify its real
// container, independent of extension. It is the tiebreak the spec calls
// for when extension-based dispatch for images is ambiguous.
func sniffContainer(path string) (containerKind, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return containerUnknown, "", err
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return containerUnknown, "", err
	}

	switch {
	case mtype.Is("image/jpeg"):
		return containerJPEG, mtype.String(), nil
	case mtype.Is("image/png"):
		return containerPNG, mtype.String(), nil
	case mtype.Is("image/tiff"):
		return containerTIFF, mtype.String(), nil
	case mtype.Is("image/webp"):
		return containerWebP, mtype.String(), nil
	case mtype.Is("image/heic"), mtype.Is("image/heif"):
		return containerHEIF, mtype.String(), nil
	case isVideoMime(mtype.String()):
		return containerVideo, mtype.String(), nil
	default:
		return containerUnknown, mtype.String(), nil
	}
}

func isVideoMime(mime string) bool {
	switch mime {
	case "video/mp4", "video/quicktime", "video/x-matroska", "video/x-msvideo",
		"video/webm", "video/3gpp":
		return true
	default:
		return false
	}
}
