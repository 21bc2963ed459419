package feedprep

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandContext starts external collaborators
var commandContext = exec.CommandContext

// Placeholders accepted in uploader argument templates
const (
	placeholderFile         = "{file}"
	placeholderSource       = "{source}"
	placeholderURL          = "{url}"
	placeholderClientID     = "{clientId}"
	placeholderClientSecret = "{clientSecret}"
)

// DefaultUploaderArgs is the argument list passed to the upload utility
// when settings do not override it.
var DefaultUploaderArgs = []string{
	"-file", placeholderFile,
	"-source", placeholderSource,
	"-url", placeholderURL,
	"-clientId", placeholderClientID,
	"-clientSecret", placeholderClientSecret,
}

// errUploaderReported is returned when the utility prints an error but exits 0
var errUploaderReported = errors.New("uploader output reports an error")

// UploadRequest describes one upload snapshot to hand over
type UploadRequest struct {
	FilePath     string
	SourceID     string
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Uploader delivers an upload snapshot to the identity platform.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) error
}

// CommandUploader runs an external upload utility.
type CommandUploader struct {
	// Path is the executable
	Path string
	// Args are argument templates; nil means DefaultUploaderArgs
	Args []string
}

// Upload runs the utility and treats a non-zero exit, or output that
// contains "error" in any case, as a failure wrapped in ErrUpload.
func (u *CommandUploader) Upload(ctx context.Context, req UploadRequest) error {
	ec := NewErrorContext("upload", req.FilePath).WithDetails("source: " + req.SourceID)
	if strings.TrimSpace(u.Path) == "" {
		return ec.Wrap(ErrUpload, errors.New("uploaderPath is not configured"))
	}

	templates := u.Args
	if len(templates) == 0 {
		templates = DefaultUploaderArgs
	}
	out, err := commandContext(ctx, u.Path, expandArgs(templates, req)...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return ec.Wrap(ErrUpload, fmt.Errorf("%w: %s", err, output))
	}
	if strings.Contains(strings.ToLower(output), "error") {
		return ec.Wrap(ErrUpload, fmt.Errorf("%w: %s", errUploaderReported, output))
	}
	return nil
}

// expandArgs substitutes request fields into the argument templates.
func expandArgs(templates []string, req UploadRequest) []string {
	r := strings.NewReplacer(
		placeholderFile, req.FilePath,
		placeholderSource, req.SourceID,
		placeholderURL, req.BaseURL,
		placeholderClientID, req.ClientID,
		placeholderClientSecret, req.ClientSecret,
	)
	args := make([]string, len(templates))
	for i, t := range templates {
		args[i] = r.Replace(t)
	}
	return args
}
