package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"autotrans/internal/config"
	"autotrans/internal/deps"
	"autotrans/internal/ledger"
)

// CheckCatalog verifies catalog connectivity and authentication.
func CheckCatalog(ctx context.Context, endpoint, apiKey string) Result {
	const name = "Catalog"

	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing endpoint"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/ajax.php?action=index", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLedgerLock reports whether another run currently holds the ledger.
func CheckLedgerLock(ledgerPath string) Result {
	const name = "Ledger lock"

	lock, err := ledger.AcquireLock(ledgerPath)
	if err != nil {
		if errors.Is(err, ledger.ErrLocked) {
			return Result{Name: name, Detail: "held by another run"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("lock check failed (%v)", err)}
	}
	path := lock.Path()
	_ = lock.Release()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (free)", path)}
}

// CheckSystemDeps evaluates the external programs the configured modes
// depend on. The log checker is optional; without it no rip log counts as
// verified.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Transcoder",
			Command:     cfg.Transcode.Transcoder,
			Description: "Required for format conversion",
		},
		{
			Name:        "flac",
			Command:     cfg.Transcode.FlacBinary,
			Description: "Required for source integrity checks",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Transcode.FFprobeBinary,
			Description: "Required for track inspection",
		},
		{
			Name:        "metaflac",
			Command:     cfg.Transcode.MetaflacBinary,
			Description: "Required for FLAC tagging",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Transcode.FFmpegBinary,
			Description: "Required for MP3 tagging",
		},
		{
			Name:        "Bundle tool",
			Command:     cfg.Transcode.BundleTool,
			Description: "Required for publishing",
		},
		{
			Name:        "SoX",
			Command:     cfg.Transcode.SoxBinary,
			Description: "Renders spectrograms when spectrogram_dir is set",
			Optional:    cfg.Paths.SpectrogramDir == "",
		},
	}
	if cfg.Transcode.LogChecker != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Log checker",
			Command:     cfg.Transcode.LogChecker,
			Description: "Verifies rip log checksums",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}
