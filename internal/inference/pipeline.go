package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/mcules/ransomguard/internal/features"
)

// Extractor reads metadata from a binary on disk. A nil record signals that
// nothing could be extracted.
type Extractor interface {
	Extract(path string) features.RawRecord
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(path string) features.RawRecord

func (f ExtractorFunc) Extract(path string) features.RawRecord { return f(path) }

// Sample describes an uploaded binary.
type Sample struct {
	Size   int64
	SHA256 string
}

// Pipeline classifies uploaded binaries: the upload is spooled to a temp file
// that lives only for the call, its metadata is extracted, normalised and
// dispatched.
type Pipeline struct {
	Extractor  Extractor
	Dispatcher *Dispatcher

	// TempDir is where uploads are spooled; empty means os.TempDir().
	TempDir string
}

// ClassifyFile runs the whole file path. Sample is filled in as soon as the
// upload has been stored, even when a later stage fails.
func (p *Pipeline) ClassifyFile(ctx context.Context, upload io.Reader) (Result, Sample, error) {
	path, sample, err := p.spool(upload)
	if err != nil {
		return Result{}, Sample{}, err
	}
	defer os.Remove(path)

	if err := ctx.Err(); err != nil {
		return Result{}, sample, err
	}

	rec, err := features.FromMetadata(p.Extractor.Extract(path))
	if err != nil {
		return Result{}, sample, err
	}

	res, err := p.Dispatcher.Dispatch(ctx, rec)
	return res, sample, err
}

func (p *Pipeline) spool(upload io.Reader) (string, Sample, error) {
	f, err := os.CreateTemp(p.TempDir, "upload-*.bin")
	if err != nil {
		return "", Sample{}, fmt.Errorf("create temp file: %w", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), upload)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", Sample{}, fmt.Errorf("store upload: %w", err)
	}

	return f.Name(), Sample{Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}
