package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// diskCachePath returns the path of the pricing cache file:
// litellm-pricing-cache.json in an ultra-mcp folder under os.UserConfigDir()
// (`~/.config/ultra-mcp/` on Linux, `~/Library/Application Support/ultra-mcp/`
// on macOS, `%AppData%\ultra-mcp\` on Windows). The folder name is the same
// on every platform.
func diskCachePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("ultra-mcp: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ultra-mcp", "litellm-pricing-cache.json"), nil
}

// readDiskCache loads the cache file from disk. It returns (nil, false, nil)
// if the file does not exist yet.
func readDiskCache(path string) (*cacheFile, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ultra-mcp: read pricing cache: %w", err)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, false, fmt.Errorf("ultra-mcp: parse pricing cache: %w", err)
	}
	return &cf, true, nil
}

// writeDiskCache persists the cache file atomically (write to a temp file,
// then rename) so a crash mid-write never corrupts the cache.
func writeDiskCache(path string, cf *cacheFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("ultra-mcp: create pricing cache dir: %w", err)
	}

	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("ultra-mcp: marshal pricing cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("ultra-mcp: write pricing cache: %w", err)
	}
	return os.Rename(tmp, path)
}

// fresh reports whether the cache metadata's timestamp is still within TTL.
func (m cacheMetadata) fresh(now time.Time) bool {
	ttl := m.TTL
	if ttl <= 0 {
		ttl = diskTTL
	}
	return now.Sub(m.Timestamp) < ttl
}
