package tilepack

import (
	"fmt"
	"io"
	gohttp "net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/psanford/sqlite3vfs"
)

// HTTPVFS is a read-only sqlite VFS that reads one archive from URL with
// HTTP range requests.
type HTTPVFS struct {
	URL    string
	Client *gohttp.Client
}

var vfsCount atomic.Int64

// RegisterHTTPVFS registers a VFS serving url and returns the name to pass
// as the vfs parameter of a sqlite3 DSN. Names are unique per call.
func RegisterHTTPVFS(url string, client *gohttp.Client) (string, error) {
	if client == nil {
		client = &gohttp.Client{Timeout: 30 * time.Second}
	}

	name := fmt.Sprintf("httpvfs%d", vfsCount.Add(1))
	if err := sqlite3vfs.RegisterVFS(name, &HTTPVFS{URL: url, Client: client}); err != nil {
		return "", fmt.Errorf("register vfs %s: %w", name, err)
	}
	return name, nil
}

func (v *HTTPVFS) Open(name string, flags sqlite3vfs.OpenFlag) (sqlite3vfs.File, sqlite3vfs.OpenFlag, error) {
	// Only the archive is readable; journals and temp files cannot be created.
	if flags&sqlite3vfs.OpenMainDB == 0 {
		return nil, 0, sqlite3vfs.CantOpenError
	}
	return &httpFile{url: v.URL, client: v.Client}, flags, nil
}

func (v *HTTPVFS) Delete(name string, dirSync bool) error {
	return sqlite3vfs.ReadOnlyError
}

// Access reports the archive itself as present and its journals as absent.
func (v *HTTPVFS) Access(name string, flags sqlite3vfs.AccessFlag) (bool, error) {
	if strings.HasSuffix(name, "-journal") || strings.HasSuffix(name, "-wal") {
		return false, nil
	}
	return flags != sqlite3vfs.AccessReadWrite, nil
}

func (v *HTTPVFS) FullPathname(name string) string {
	return name
}

type httpFile struct {
	url    string
	client *gohttp.Client

	mu   sync.Mutex
	size int64
}

func (f *httpFile) Close() error {
	return nil
}

func (f *httpFile) ReadAt(p []byte, off int64) (int, error) {
	req, err := gohttp.NewRequest(gohttp.MethodGet, f.url, nil)
	if err != nil {
		return 0, sqlite3vfs.IOErrorRead
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, sqlite3vfs.IOErrorRead
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case gohttp.StatusPartialContent:
	case gohttp.StatusRequestedRangeNotSatisfiable:
		// Past the end of the archive; sqlite zero-fills short reads.
		return 0, nil
	default:
		return 0, sqlite3vfs.IOErrorRead
	}

	n, err := io.ReadFull(resp.Body, p)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, sqlite3vfs.IOErrorRead
	}
	return n, nil
}

func (f *httpFile) WriteAt(p []byte, off int64) (int, error) {
	return 0, sqlite3vfs.ReadOnlyError
}

func (f *httpFile) Truncate(size int64) error {
	return sqlite3vfs.ReadOnlyError
}

func (f *httpFile) Sync(flag sqlite3vfs.SyncType) error {
	return nil
}

func (f *httpFile) FileSize() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.size > 0 {
		return f.size, nil
	}

	resp, err := f.client.Head(f.url)
	if err != nil {
		return 0, sqlite3vfs.IOError
	}
	resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK || resp.ContentLength < 0 {
		return 0, sqlite3vfs.IOError
	}

	f.size = resp.ContentLength
	return f.size, nil
}

func (f *httpFile) Lock(elock sqlite3vfs.LockType) error {
	return nil
}

func (f *httpFile) Unlock(elock sqlite3vfs.LockType) error {
	return nil
}

func (f *httpFile) CheckReservedLock() (bool, error) {
	return false, nil
}

func (f *httpFile) SectorSize() int64 {
	return 0
}

func (f *httpFile) DeviceCharacteristics() sqlite3vfs.DeviceCharacteristic {
	return sqlite3vfs.IocapImmutable
}
