package download

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

var zipMagic = []byte("PK\x03\x04")

// pickCSV returns the main CSV of a download. A body that is not a zip
// archive is taken as the CSV itself. Inside an archive top-level files win
// over nested ones; among several, a train file or one named after the
// dataset is preferred, otherwise the first.
func pickCSV(body []byte, name string) (*File, error) {
	if !bytes.HasPrefix(body, zipMagic) {
		return &File{Name: name + ".csv", Data: body}, nil
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	var top, nested []*zip.File
	exts := map[string]struct{}{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		exts[ext] = struct{}{}
		if ext != ".csv" {
			continue
		}
		if strings.Contains(strings.Trim(f.Name, "/"), "/") {
			nested = append(nested, f)
		} else {
			top = append(top, f)
		}
	}
	candidates := top
	if len(candidates) == 0 {
		candidates = nested
	}
	if len(candidates) == 0 {
		found := make([]string, 0, len(exts))
		for e := range exts {
			found = append(found, e)
		}
		sort.Strings(found)
		return nil, fmt.Errorf("no CSV files in archive; found extensions: %s", strings.Join(found, ", "))
	}
	main := candidates[0]
	if len(candidates) > 1 {
		want := strings.ToLower(name)
		for _, f := range candidates {
			base := strings.ToLower(path.Base(f.Name))
			if strings.Contains(base, "train") || strings.Contains(base, want) {
				main = f
				break
			}
		}
	}
	rc, err := main.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", main.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", main.Name, err)
	}
	return &File{Name: path.Base(main.Name), Data: data}, nil
}
