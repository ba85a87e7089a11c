package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"openelex-backend/lib/filenames"
	"openelex-backend/internal/models"
	"openelex-backend/internal/pipeline"
)

// ZipFetcher handles states whose sources arrive inside archives. The
// archive is downloaded once per invocation, every mapping pointing at
// it is extracted to its generated filename, a manifest of the
// extracted members is written, and the archive itself is removed.
type ZipFetcher struct {
	*Fetcher
	ds pipeline.Datasource

	// archives already handled in this invocation, so one archive
	// shared by many mappings is not refetched per mapping
	fetched map[string]bool
}

func NewZip(plain *Fetcher, ds pipeline.Datasource) *ZipFetcher {
	return &ZipFetcher{
		Fetcher: plain,
		ds:      ds,
		fetched: map[string]bool{},
	}
}

func (f *ZipFetcher) Fetch(ctx context.Context, rawURL, fname string, overwrite bool) error {
	if !strings.HasSuffix(strings.ToLower(rawURL), ".zip") {
		return f.Fetcher.Fetch(ctx, rawURL, fname, overwrite)
	}
	if f.fetched[rawURL] {
		slog.DebugContext(ctx, "archive already handled this run", "url", rawURL)
		return nil
	}

	staging := "staging__" + path.Base(rawURL)
	if err := f.Fetcher.Fetch(ctx, rawURL, staging, true); err != nil {
		return err
	}
	defer f.cache.Forget(staging)

	mappings, err := f.ds.MappingsForURL(ctx, rawURL)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return fmt.Errorf("no mappings claim archive %s", rawURL)
	}

	archive, err := zip.OpenReader(f.cache.Abs(staging))
	if err != nil {
		return fmt.Errorf("open archive %s: %w", rawURL, err)
	}
	defer archive.Close()

	var extracted []string
	for _, m := range mappings {
		if m.RawExtractedFilename == "" {
			continue
		}
		err := f.extract(&archive.Reader, m)
		if err != nil {
			return fmt.Errorf("extract %s from %s: %w", m.RawExtractedFilename, rawURL, err)
		}
		extracted = append(extracted, m.GeneratedFilename)
		slog.InfoContext(ctx, "extracted", "member", m.RawExtractedFilename, "fname", m.GeneratedFilename)
	}

	if len(extracted) > 0 {
		if err := f.writeManifest(mappings[0].Election, extracted); err != nil {
			return err
		}
	}

	f.fetched[rawURL] = true
	return nil
}

// extract copies one member out to its generated filename, descending
// one level into a nested archive when the mapping names a parent
// zipfile.
func (f *ZipFetcher) extract(archive *zip.Reader, m models.Mapping) error {
	members := archive
	if m.ParentZipfile != "" {
		nested, err := openNested(archive, m.ParentZipfile)
		if err != nil {
			return err
		}
		members = nested
	}

	member := findMember(members, m.RawExtractedFilename)
	if member == nil {
		return fmt.Errorf("member %q not in archive", m.RawExtractedFilename)
	}
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	target := f.cache.Abs(m.GeneratedFilename)
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, rc)
	closeErr := out.Close()
	if err != nil {
		os.Remove(target)
		return err
	}
	if closeErr != nil {
		os.Remove(target)
		return closeErr
	}
	return nil
}

func openNested(archive *zip.Reader, name string) (*zip.Reader, error) {
	member := findMember(archive, name)
	if member == nil {
		return nil, fmt.Errorf("parent zipfile %q not in archive", name)
	}
	rc, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
}

func findMember(archive *zip.Reader, name string) *zip.File {
	for _, file := range archive.File {
		if file.Name == name || strings.HasSuffix(file.Name, "/"+name) {
			return file
		}
	}
	return nil
}

func (f *ZipFetcher) writeManifest(election models.Election, extracted []string) error {
	state := stateFromSlug(election.Slug)
	name := filenames.Manifest(state, election.StartDate, filenames.Options{
		RaceType: election.RaceType,
		Special:  election.Special,
	})
	return os.WriteFile(f.cache.Abs(name), []byte(strings.Join(extracted, "\n")+"\n"), 0644)
}

func stateFromSlug(slug string) string {
	if i := strings.Index(slug, "-"); i > 0 {
		return slug[:i]
	}
	return slug
}
