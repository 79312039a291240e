package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/docstack/knowledge-backend/internal/config"
	"github.com/docstack/knowledge-backend/internal/entity"
)

// AllowedExtensions are the only file types the extractor can handle.
var AllowedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
}

// Validator validates document uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewUploadValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks the upload request before any side effect happens.
func (v *Validator) ValidateUpload(req *entity.UploadDocumentRequest) error {
	if req.Title == "" {
		return fmt.Errorf("%w: title", entity.ErrMissingField)
	}
	if req.CategoryID == "" {
		return fmt.Errorf("%w: category_id", entity.ErrMissingField)
	}
	if req.UploadedBy == "" {
		return fmt.Errorf("%w: uploaded_by", entity.ErrMissingField)
	}
	if req.Filename == "" {
		return fmt.Errorf("%w: filename", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %s (allowed: pdf, txt)", entity.ErrInvalidExtension, ext)
	}

	if len(req.Content) == 0 {
		return entity.ErrEmptyFile
	}
	if int64(len(req.Content)) > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)",
			entity.ErrFileTooLarge, req.Filename, len(req.Content), v.cfg.MaxFileSize)
	}

	return nil
}

// Extension returns the lower-cased extension of the uploaded filename. The
// blob is stored under the document id plus this extension, never the
// user-supplied name.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
