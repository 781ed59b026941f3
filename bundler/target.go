package bundler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Target is one entry file and the outputs to produce from it. Output paths
// are relative to the outRoot given to Build unless absolute.
type Target struct {
	Entry      string
	Outputs    map[Mode]string
	CopyImages bool
}

// Result contains the build output.
type Result struct {
	Entry string

	// Outputs maps each mode to the file written for it.
	Outputs map[Mode]string

	// Files lists every dependency path reached from Entry, in first-mark order.
	Files []string

	// Images is the img listing, filled when images were copied.
	Images []string

	// Manifest maps written files (relative to outRoot) to their sha256.
	Manifest map[string]string

	Duration time.Duration
}

// Build runs Concat once per configured mode, each with its own Seen, and
// writes the outputs. With CopyImages every image of the img listing is
// copied next to the CSS output, where css mode's basename urls expect it.
func (b *Bundler) Build(ctx context.Context, t Target, outRoot string) (*Result, error) {
	start := time.Now()
	result := &Result{
		Entry:    t.Entry,
		Outputs:  make(map[Mode]string),
		Manifest: make(map[string]string),
	}

	texts := make(map[Mode]string)
	for _, mode := range Modes() {
		rel, ok := t.Outputs[mode]
		if !ok || rel == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seen := NewSeen()
		text, err := b.ConcatWith(t.Entry, mode, seen)
		if err != nil {
			return nil, fmt.Errorf("build %s (%s): %w", t.Entry, mode, err)
		}
		if result.Files == nil {
			result.Files = seen.Paths()
		}
		texts[mode] = text

		dst := outputPath(outRoot, rel)
		if err := writeOutput(dst, []byte(text)); err != nil {
			return nil, err
		}
		result.Outputs[mode] = dst
		result.Manifest[manifestKey(outRoot, dst)] = hashBytes([]byte(text))
		b.log.Debugf("wrote %s (%s, %d bytes)", dst, mode, len(text))
	}

	if t.CopyImages {
		cssOut, ok := result.Outputs[ModeCSS]
		if !ok {
			return nil, fmt.Errorf("build %s: copy_images needs a css output", t.Entry)
		}
		listing, ok := texts[ModeImg]
		if !ok {
			var err error
			if listing, err = b.Concat(t.Entry, ModeImg); err != nil {
				return nil, fmt.Errorf("build %s (img): %w", t.Entry, err)
			}
		}
		if err := b.copyImages(ctx, listing, filepath.Dir(cssOut), outRoot, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (b *Bundler) copyImages(ctx context.Context, listing, destDir, outRoot string, result *Result) error {
	for _, line := range strings.Split(listing, "\n") {
		if line == "" {
			continue
		}
		result.Images = append(result.Images, line)
		src, ok := localImage(line)
		if !ok {
			b.log.Debugf("not copying remote image %s", line)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := b.reader.Read(src)
		if err != nil {
			b.log.Warnf("image %s: %v", line, err)
			continue
		}
		dst := filepath.Join(destDir, baseName(src))
		if err := writeOutput(dst, []byte(data)); err != nil {
			return err
		}
		result.Manifest[manifestKey(outRoot, dst)] = hashBytes([]byte(data))
	}
	return nil
}

// localImage strips query and fragment from an img listing line and reports
// whether it names a local file. Lines carry the sheet's directory as a
// prefix, so remote and inline urls are found by substring.
func localImage(u string) (string, bool) {
	if strings.Contains(u, "data:") || strings.Contains(u, "://") || strings.Contains(u, "//") {
		return "", false
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" || strings.HasSuffix(u, "/") {
		return "", false
	}
	return u, true
}

// WriteManifest writes manifest as dir/manifest.json.
func WriteManifest(dir string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0644)
}

func outputPath(outRoot, rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(outRoot, p)
}

func manifestKey(outRoot, dst string) string {
	rel, err := filepath.Rel(outRoot, dst)
	if err != nil {
		return filepath.ToSlash(dst)
	}
	return filepath.ToSlash(rel)
}

func writeOutput(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
