package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("blob storage is not configured")

type Uploader interface {
	// Upload stores r under objectName and returns the opaque reference to persist.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

type Store interface {
	Uploader
	Signer
	Delete(ctx context.Context, objectName string) error
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName keeps only the base name and replaces anything outside [a-zA-Z0-9._-].
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "resume.pdf"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// ResumeObjectName is resumes/<userID>/<unix-ms>-<sanitized name>.
func ResumeObjectName(userID, fileName string, now time.Time) string {
	return "resumes/" + userID + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeFileName(fileName)
}
