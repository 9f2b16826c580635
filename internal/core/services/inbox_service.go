package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	inboxDoneSuffix   = ".done"
	inboxFailedSuffix = ".failed"
)

// InboxService redeems download codes dropped as files into a directory.
// Files are handled one at a time through a single redemption flow.
type InboxService struct {
	flow        *RedemptionFlow
	extension   string
	exportAfter bool
	mu          sync.Mutex
}

// NewInboxService creates a new inbox service. extension selects the files
// to pick up (e.g. ".token").
func NewInboxService(flow *RedemptionFlow, extension string, exportAfter bool) *InboxService {
	return &InboxService{
		flow:        flow,
		extension:   extension,
		exportAfter: exportAfter,
	}
}

// InboxResult describes the outcome for one inbox file
type InboxResult struct {
	Source     string // file the code was read from
	Token      string
	Download   string // saved artifact path
	Export     string // saved export path, when enabled
	ArchivedAs string // where the source file was moved
	Err        error
}

// Matches reports whether path is an inbox file still to be processed
func (s *InboxService) Matches(path string) bool {
	return strings.HasSuffix(path, s.extension)
}

// Pending lists unprocessed inbox files in dir, oldest name first
func (s *InboxService) Pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if s.Matches(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Process validates and downloads the code stored in path, then archives
// the file with a .done or .failed suffix
func (s *InboxService) Process(ctx context.Context, path string) InboxResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.flow.Reset()

	res := InboxResult{Source: path}

	token, err := readToken(path)
	if err != nil {
		res.Err = err
		res.ArchivedAs = archive(path, inboxFailedSuffix)
		return res
	}
	res.Token = token

	if _, err := s.flow.Validate(ctx, token); err != nil {
		res.Err = fmt.Errorf("validation failed: %w", err)
		res.ArchivedAs = archive(path, inboxFailedSuffix)
		return res
	}

	dl, err := s.flow.Download(ctx)
	if err != nil {
		res.Err = err
		res.ArchivedAs = archive(path, inboxFailedSuffix)
		return res
	}
	res.Download = dl.Path

	if s.exportAfter && dl.State.CanExport() {
		if exportPath, err := s.flow.Export(ctx); err == nil {
			res.Export = exportPath
		}
	}

	res.ArchivedAs = archive(path, inboxDoneSuffix)
	return res
}

// readToken returns the first non-blank line of the file
func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrBlankToken)
}

// archive renames path with suffix; an empty result means the file stayed
func archive(path, suffix string) string {
	target := path + suffix
	if err := os.Rename(path, target); err != nil {
		return ""
	}
	return target
}
