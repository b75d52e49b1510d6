// Package file classifies filesystem entries by extension and MIME type
// into the two media categories the scan pipeline understands.
package file

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Category is a coarse media kind, matching the catalog's category column.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
)

var (
	supportedImageExts = map[string]bool{
		".jpg":   true,
		".jpeg":  true,
		".png":   true,
		".webp":  true,
		".tiff":  true,
		".tif":   true,
		".heic":  true,
		".heif":  true,
		".heics": true,
		".heifs": true,
	}

	supportedVideoExts = map[string]bool{
		".mp4":  true,
		".mov":  true,
		".avi":  true,
		".mkv":  true,
		".webm": true,
		".m4v":  true,
		".3gp":  true,
	}

	mimeTypeToCategory = map[string]Category{
		"image/jpeg": CategoryImage,
		"image/jpg":  CategoryImage,
		"image/png":  CategoryImage,
		"image/webp": CategoryImage,
		"image/tiff": CategoryImage,
		"image/heic": CategoryImage,
		"image/heif": CategoryImage,

		"video/mp4":        CategoryVideo,
		"video/quicktime":  CategoryVideo,
		"video/x-msvideo":  CategoryVideo,
		"video/x-matroska": CategoryVideo,
		"video/webm":       CategoryVideo,
		"video/3gpp":       CategoryVideo,
	}
)

// Validator classifies paths into the image/video whitelist the planner
// applies during the collecting phase.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidationResult is the outcome of classifying one candidate path.
type ValidationResult struct {
	Valid       bool
	Category    Category
	Extension   string
	MimeType    string
	ErrorReason string
}

// ValidateFile checks a filename (and optional sniffed content type)
// against the whitelist. When a content type is given and does not fit
// the category of the extension, the file is rejected.
func (v *Validator) ValidateFile(filename, contentType string) *ValidationResult {
	result := &ValidationResult{
		Extension: strings.ToLower(filepath.Ext(filename)),
		MimeType:  strings.ToLower(strings.TrimSpace(contentType)),
	}

	if result.Extension == "" {
		result.ErrorReason = "file has no extension"
		return result
	}

	category, isSupported := v.CategoryByExtension(result.Extension)
	if !isSupported {
		result.ErrorReason = fmt.Sprintf("unsupported file extension: %s", result.Extension)
		return result
	}
	result.Category = category

	if result.MimeType != "" && !v.IsValidMimeType(result.MimeType, category) {
		result.ErrorReason = fmt.Sprintf("MIME type '%s' does not match file extension '%s'", result.MimeType, result.Extension)
		return result
	}

	result.Valid = true
	return result
}

// IsSupported reports whether filename's extension is in the whitelist.
func (v *Validator) IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExts[ext] || supportedVideoExts[ext]
}

// IsSupportedExtension reports whether ext (with or without a leading dot)
// is in the whitelist.
func (v *Validator) IsSupportedExtension(ext string) bool {
	ext = normalizeExt(ext)
	return supportedImageExts[ext] || supportedVideoExts[ext]
}

// CategoryByExtension determines the media category from a file extension.
func (v *Validator) CategoryByExtension(ext string) (Category, bool) {
	ext = normalizeExt(ext)
	if supportedImageExts[ext] {
		return CategoryImage, true
	}
	if supportedVideoExts[ext] {
		return CategoryVideo, true
	}
	return "", false
}

// CategoryByMimeType determines the media category from a MIME type,
// falling back to the top-level type prefix for unrecognized subtypes.
func (v *Validator) CategoryByMimeType(mimeType string) (Category, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if category, exists := mimeTypeToCategory[mimeType]; exists {
		return category, true
	}
	if strings.HasPrefix(mimeType, "image/") {
		return CategoryImage, true
	}
	if strings.HasPrefix(mimeType, "video/") {
		return CategoryVideo, true
	}
	return "", false
}

// DetermineCategory resolves a category from filename and content type,
// preferring the extension because it is the more reliable signal.
func (v *Validator) DetermineCategory(filename, contentType string) (Category, bool) {
	if filename != "" {
		if category, ok := v.CategoryByExtension(filepath.Ext(filename)); ok {
			return category, true
		}
	}
	if contentType != "" {
		if category, ok := v.CategoryByMimeType(contentType); ok {
			return category, true
		}
	}
	return "", false
}

// IsValidMimeType reports whether mimeType is consistent with category.
func (v *Validator) IsValidMimeType(mimeType string, category Category) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if mappedCategory, exists := mimeTypeToCategory[mimeType]; exists {
		return mappedCategory == category
	}

	switch category {
	case CategoryImage:
		return strings.HasPrefix(mimeType, "image/")
	case CategoryVideo:
		return strings.HasPrefix(mimeType, "video/")
	}
	return false
}

// GetMimeTypeFromExtension returns the MIME type for a given extension,
// falling back to the standard library's registry.
func (v *Validator) GetMimeTypeFromExtension(ext string) string {
	ext = normalizeExt(ext)

	switch ext {
	case ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}

	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}

	return "application/octet-stream"
}

// GetSupportedExtensions returns a flat list of all whitelisted extensions.
func (v *Validator) GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(supportedImageExts)+len(supportedVideoExts))
	for ext := range supportedImageExts {
		extensions = append(extensions, ext)
	}
	for ext := range supportedVideoExts {
		extensions = append(extensions, ext)
	}
	return extensions
}

// GetSupportedExtensionsByCategory returns the whitelisted extensions for
// one category.
func (v *Validator) GetSupportedExtensionsByCategory(category Category) []string {
	var extensions []string

	switch category {
	case CategoryImage:
		for ext := range supportedImageExts {
			extensions = append(extensions, ext)
		}
	case CategoryVideo:
		for ext := range supportedVideoExts {
			extensions = append(extensions, ext)
		}
	}

	return extensions
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// FormatValidationError renders a ValidationResult's failure reason for logs.
func (v *Validator) FormatValidationError(result *ValidationResult) string {
	if result.Valid {
		return ""
	}
	if result.ErrorReason != "" {
		return result.ErrorReason
	}
	return "file validation failed for unknown reason"
}
