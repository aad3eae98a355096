// Package fetch resolves a Proton compatibility tool for a launch: an
// existing install under compatibilitytools.d when possible, otherwise the
// latest upstream release, checksum-verified and extracted in place.
package fetch

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// EnvRepo overrides the GitHub repository releases are fetched from.
const EnvRepo = "WARD_PROTON_REPO"

const defaultRepo = "GloriousEggroll/proton-ge-custom"

// Release describes the downloadable artifacts of one upstream release.
type Release struct {
	Tag         string
	TarballURL  string
	ChecksumURL string
}

// Fetcher downloads and installs compatibility tools into compatDir.
type Fetcher struct {
	client    *http.Client
	apiURL    string
	compatDir string
	log       *zap.Logger
}

// New builds a fetcher targeting the user's compatibilitytools.d directory.
func New(compatDir string, log *zap.Logger) *Fetcher {
	repo := os.Getenv(EnvRepo)
	if repo == "" {
		repo = defaultRepo
	}
	return &Fetcher{
		client:    &http.Client{Timeout: 5 * time.Minute},
		apiURL:    "https://api.github.com/repos/" + repo + "/releases/latest",
		compatDir: compatDir,
		log:       log,
	}
}

// FindInstalled returns the newest Proton install under compatDir, if any.
// Newest is by version-ish name ordering, matching how users pick tools.
func FindInstalled(compatDir string) (string, bool) {
	entries, err := os.ReadDir(compatDir)
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.Contains(name, "Proton") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return versionLess(candidates[i], candidates[j])
	})
	return filepath.Join(compatDir, candidates[len(candidates)-1]), true
}

// versionLess orders tool names with numeric components compared by value,
// so GE-Proton10-1 sorts after GE-Proton9-2.
func versionLess(a, b string) bool {
	at, bt := versionTokens(a), versionTokens(b)
	for i := 0; i < len(at) && i < len(bt); i++ {
		if at[i] == bt[i] {
			continue
		}
		an, aerr := strconv.Atoi(at[i])
		bn, berr := strconv.Atoi(bt[i])
		if aerr == nil && berr == nil {
			return an < bn
		}
		return at[i] < bt[i]
	}
	return len(at) < len(bt)
}

// versionTokens splits a name into alternating digit and non-digit runs.
func versionTokens(s string) []string {
	var tokens []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[i-1]) {
			tokens = append(tokens, s[start:i])
			start = i
		}
	}
	return tokens
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Install ensures the latest release is present under compatDir and returns
// its directory. An already-installed release is reused without touching the
// network beyond the release lookup.
func (f *Fetcher) Install(ctx context.Context) (string, error) {
	release, err := f.LatestRelease(ctx)
	if err != nil {
		return "", err
	}

	target := filepath.Join(f.compatDir, release.Tag)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		f.log.Debug("release already installed", zap.String("tag", release.Tag))
		return target, nil
	}

	archive, err := f.download(ctx, release)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	if err := os.MkdirAll(f.compatDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", f.compatDir, err)
	}
	top, err := extractTarGz(archive, f.compatDir)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", release.Tag, err)
	}

	f.log.Info("installed compatibility tool", zap.String("tag", release.Tag))
	if top != "" {
		return filepath.Join(f.compatDir, top), nil
	}
	return target, nil
}

// LatestRelease queries the releases endpoint and locates the tarball and
// checksum assets.
func (f *Fetcher) LatestRelease(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query releases: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read releases response: %w", err)
	}

	release := &Release{Tag: gjson.GetBytes(body, "tag_name").String()}
	for _, asset := range gjson.GetBytes(body, "assets").Array() {
		name := asset.Get("name").String()
		url := asset.Get("browser_download_url").String()
		switch {
		case strings.HasSuffix(name, ".tar.gz"):
			release.TarballURL = url
		case strings.HasSuffix(name, ".sha512sum"):
			release.ChecksumURL = url
		}
	}

	if release.Tag == "" || release.TarballURL == "" {
		return nil, fmt.Errorf("release is missing a tarball asset")
	}
	return release, nil
}

// download streams the tarball to a temporary file, reporting progress on a
// tty and verifying the advertised sha512 digest when one is published.
func (f *Fetcher) download(ctx context.Context, release *Release) (string, error) {
	var wantDigest string
	if release.ChecksumURL != "" {
		var err error
		wantDigest, err = f.fetchChecksum(ctx, release.ChecksumURL)
		if err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, release.TarballURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", release.Tag, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", release.Tag, resp.Status)
	}

	tmp, err := os.CreateTemp("", "ward-proton-*.tar.gz")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	digest := sha512.New()
	progress := newProgress(os.Stderr, "Downloading "+release.Tag, resp.ContentLength)
	_, err = io.Copy(io.MultiWriter(tmp, digest, progress), resp.Body)
	progress.done()
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", release.Tag, err)
	}

	if wantDigest != "" {
		got := hex.EncodeToString(digest.Sum(nil))
		if got != wantDigest {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("checksum mismatch for %s: got %s, want %s", release.Tag, got, wantDigest)
		}
	}

	return tmp.Name(), nil
}

// fetchChecksum reads the published "digest  filename" file and returns the
// digest for the tarball.
func (f *Fetcher) fetchChecksum(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download checksum: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download checksum: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(body))
	if len(fields) == 0 || len(fields[0]) != sha512.Size*2 {
		return "", fmt.Errorf("malformed checksum file")
	}
	return fields[0], nil
}
