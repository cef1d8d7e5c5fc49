// Package downloader fetches attachment payloads and hands them to storage.
package downloader

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	errs "s3ripper/pkg/errors"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/storage"
)

// PayloadClient fetches a payload URL authorized by an access token
type PayloadClient interface {
	Download(ctx context.Context, assetURL, accessToken string) (*http.Response, error)
}

// Downloader streams one attachment at a time into the storage manager
type Downloader struct {
	client  PayloadClient
	storage *storage.Manager
	logger  logger.Logger
	now     func() time.Time
}

// New creates a downloader writing below the storage manager's output directory
func New(client PayloadClient, store *storage.Manager, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client:  client,
		storage: store,
		logger:  log.WithField("component", "downloader"),
		now:     time.Now,
	}
}

// Save downloads assetURL with the access token and stores it at
// outputDir/destinationSubdir/<name>, replacing any existing file. The
// name is explicitFilename verbatim when given, else the sanitized
// Content-Disposition filename, else downloaded_asset_<unix seconds>.unknown.
// An explicit name that is not a single path element is rejected before
// any request is made. Returns the stored path.
func (d *Downloader) Save(ctx context.Context, assetURL, accessToken, destinationSubdir, explicitFilename string) (string, error) {
	if err := validateExplicit(explicitFilename); err != nil {
		return "", err
	}
	start := time.Now()

	resp, err := d.client.Download(ctx, assetURL, accessToken)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errs.Wrap(errs.ErrorTypeDownload, err, "download of "+logger.RedactURL(assetURL)+" failed")
	}
	defer resp.Body.Close()

	filename := d.resolveFilename(explicitFilename, resp.Header.Get("Content-Disposition"))
	replaced := d.storage.Exists(destinationSubdir, filename)

	path, n, err := d.storage.Save(destinationSubdir, filename, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	d.logger.DebugWithFields("Payload stored", map[string]interface{}{
		"path":     path,
		"bytes":    n,
		"replaced": replaced,
		"duration": time.Since(start).String(),
	})
	return path, nil
}

func (d *Downloader) resolveFilename(explicit, disposition string) string {
	if explicit != "" {
		return explicit
	}
	if name := baseName(DispositionFilename(disposition)); name != "" {
		return name
	}
	return fmt.Sprintf("downloaded_asset_%d.unknown", d.now().Unix())
}

// validateExplicit accepts an empty name or a single path element
func validateExplicit(name string) error {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errs.Newf(errs.ErrorTypeInvalid, "file name %q must not contain a path", name)
	}
	return nil
}

// DispositionFilename extracts the filename parameter of a
// Content-Disposition header. Headers mime cannot parse fall back to the
// text after "filename=", without surrounding quotes.
func DispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		return params["filename"]
	}

	idx := strings.Index(header, "filename=")
	if idx < 0 {
		return ""
	}
	value := header[idx+len("filename="):]
	if semi := strings.IndexByte(value, ';'); semi >= 0 {
		value = value[:semi]
	}
	return strings.Trim(strings.TrimSpace(value), `"'`)
}

// baseName keeps only the final element of a server-supplied name and
// makes it safe to create
func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return storage.SanitizeSegment(base)
}
