package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
)

const (
	ManifestFile = "manifest.json"
	ChartsFile   = "charts.html"
	imagesDir    = "images"
)

// Manifest lists what Export wrote.
type Manifest struct {
	Pages   []string `json:"pages"`
	Images  []string `json:"images"`
	Missing []string `json:"missing,omitempty"`
}

// Export writes the dashboard as a static site into dir: the three pages, a single page with
// every forecast chart, the catalog images and a manifest. Images missing from the catalog
// directory are skipped with a warning.
func Export(ctx context.Context, d *Dashboard, r *Renderer, dir string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Join(dir, imagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create output directory, %w", err)
	}
	links := StaticLinks()
	m := &Manifest{}

	if err := writePage(r, filepath.Join(dir, links.Home), PageHome, d.HomeView(links)); err != nil {
		return nil, err
	}
	m.Pages = append(m.Pages, links.Home)

	view, err := d.IndicatorsView(ctx, links)
	if err != nil {
		return nil, err
	}
	if err := writePage(r, filepath.Join(dir, links.Indicators), PageIndicators, view); err != nil {
		return nil, err
	}
	m.Pages = append(m.Pages, links.Indicators)

	if view, err = d.TASIView("", links); err != nil {
		return nil, err
	}
	if err := writePage(r, filepath.Join(dir, links.TASI), PageTASI, view); err != nil {
		return nil, err
	}
	m.Pages = append(m.Pages, links.TASI)

	page, err := d.ChartsPage(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, fmt.Errorf("unable to render %s, %w", ChartsFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ChartsFile), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("unable to write %s, %w", ChartsFile, err)
	}
	m.Pages = append(m.Pages, ChartsFile)

	if err := d.copyImages(ctx, dir, links, m); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("unable to write %s, %w", ManifestFile, err)
	}

	d.logger.Info("exported static site",
		slog.String("dir", dir),
		slog.Int("pages", len(m.Pages)),
		slog.Int("images", len(m.Images)),
		slog.Int("missing", len(m.Missing)),
	)
	return m, nil
}

func writePage(r *Renderer, path, name string, view View) error {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, view); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return nil
}

func (d *Dashboard) copyImages(ctx context.Context, dir string, links Links, m *Manifest) error {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, label := range d.catalog.Labels() {
		label := label
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := d.catalog.Lookup(label)
			if err != nil {
				return err
			}
			dst := filepath.Join(dir, filepath.FromSlash(links.Image(label)))
			err = copyFile(src, dst)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, fs.ErrNotExist):
				d.logger.Warn("image missing, skipping",
					slog.String("label", label),
					slog.String("path", src),
				)
				m.Missing = append(m.Missing, label)
				return nil
			case err != nil:
				return fmt.Errorf("unable to copy image %s, %w", label, err)
			}
			m.Images = append(m.Images, links.Image(label))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sort.Strings(m.Images)
	sort.Strings(m.Missing)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
