// Package localfs stores artifacts as files below a root directory.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scenecast/internal/ports"
)

// artifactTypes covers extensions the system mime table may not know.
var artifactTypes = map[string]string{
	".mp4": "video/mp4",
	".jpg": "image/jpeg",
	".py":  "text/x-python; charset=utf-8",
}

// LocalFS implements ports.StorageProvider and ports.LocalKeyer.
type LocalFS struct {
	root string
	// urlPrefix is where the API serves objects, e.g. "/artifacts".
	urlPrefix string
}

func New(root, urlPrefix string) *LocalFS {
	return &LocalFS{root: filepath.Clean(root), urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (l *LocalFS) Provider() string { return "localfs" }

// resolve maps a slash-separated key to a path that cannot leave root.
func (l *LocalFS) resolve(objectKey string) (string, error) {
	clean := path.Clean("/" + objectKey)
	if objectKey == "" || clean == "/" {
		return "", fmt.Errorf("object key is required")
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// KeyFor returns the key of a file living under root.
func (l *LocalFS) KeyFor(p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	root, err := filepath.Abs(l.root)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	dst, err := l.resolve(in.ObjectKey)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	n, err := io.Copy(out, in.Reader)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

func (l *LocalFS) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	p, err := l.resolve(objectKey)
	if err != nil {
		return nil, "", 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", 0, ports.ErrObjectNotFound
		}
		return nil, "", 0, err
	}
	st, err := f.Stat()
	if err != nil || !st.Mode().IsRegular() {
		f.Close()
		return nil, "", 0, ports.ErrObjectNotFound
	}

	ext := strings.ToLower(filepath.Ext(p))
	contentType = artifactTypes[ext]
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, io.SeekStart)
		contentType = http.DetectContentType(buf[:n])
	}
	return f, contentType, st.Size(), nil
}

func (l *LocalFS) DeleteObject(ctx context.Context, objectKey string) error {
	p, err := l.resolve(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ports.ErrObjectNotFound
		}
		return err
	}
	return nil
}

// GetSignedURL returns the API path serving the object; local files have no
// expiring links.
func (l *LocalFS) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	if _, err := l.resolve(objectKey); err != nil {
		return ports.SignedURLOutput{}, err
	}
	u := l.urlPrefix + "/" + (&url.URL{Path: strings.TrimPrefix(path.Clean("/"+objectKey), "/")}).EscapedPath()
	return ports.SignedURLOutput{URL: u, ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}
