package repack

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const bufSize = 64 * 1024

var (
	// ErrUnsupported is returned for (operation, source, target) combinations
	// that have no conversion path. Hitting it is a caller bug.
	ErrUnsupported = errors.New("unsupported transcode operation")
	// ErrInvalidLevel is returned for compression levels outside the format's range.
	ErrInvalidLevel = errors.New("invalid compression level")
)

// UnsupportedError describes a dispatch that has no conversion path.
type UnsupportedError struct {
	Op     Operation
	Source File
	Target File
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s (src: %s, fmt: %s) -> (dst: %s, fmt: %s)",
		ErrUnsupported, e.Op, e.Source.Path, e.Source.Format, e.Target.Path, e.Target.Format)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// File is a path together with the format inferred from its name.
type File struct {
	Path   string
	Format Format
}

// NewFile infers the format of path from its file name.
func NewFile(path string) File {
	return File{Path: path, Format: DetectFormat(path)}
}

// Job converts Source into Target. The zero operation is Decode(OuterMost).
type Job struct {
	Source    File
	Target    File
	Operation Operation
}

// New creates a Job with the default Decode(OuterMost) operation.
//
// Decompress base.tgz to base.tar:
//
//	err := repack.New("base.tgz", "base.tar").Run()
//
// Compress file.tar to file.tar.zst:
//
//	err := repack.New("file.tar", "file.tar.zst").WithOperation(repack.Encode(19)).Run()
func New(source, target string) *Job {
	return &Job{
		Source:    NewFile(source),
		Target:    NewFile(target),
		Operation: Decode(),
	}
}

// WithOperation replaces the job's operation.
func (j *Job) WithOperation(op Operation) *Job {
	j.Operation = op
	return j
}

// EncodeWithMaxLevel switches the job to Encode at the target format's
// maximum level, or DefaultLevel when the target is not compressed.
func (j *Job) EncodeWithMaxLevel() *Job {
	level, ok := j.Target.Format.MaxLevel()
	if !ok {
		level = DefaultLevel
	}
	j.Operation = Encode(level)
	return j
}

// Run performs exactly one conversion. Callers must already know which branch
// applies; anything else yields an *UnsupportedError.
func (j *Job) Run() error {
	op := j.Operation
	switch {
	case op.Kind == KindEncode && (j.Target.Format == TarZstd || j.Target.Format == Zstd):
		return j.compressZstd(op.Level)
	case op.Kind == KindDecode && op.Layer == OuterMost && (j.Source.Format == Gz || j.Source.Format == TarGz):
		return j.decompressGzip()
	default:
		return &UnsupportedError{Op: op, Source: j.Source, Target: j.Target}
	}
}

// EncoderLevel is the encoder tier a zstd level 0..22 runs at. The encoder
// has four tiers: below 3 is fastest, 3..5 default, 6..9 better, 10 and up
// best compression.
func EncoderLevel(level int) zstd.EncoderLevel {
	return zstd.EncoderLevelFromZstd(level)
}

func (j *Job) compressZstd(level int) error {
	if level < 0 || level > 22 {
		return fmt.Errorf("%w: %d (zstd accepts 0..22)", ErrInvalidLevel, level)
	}

	src, err := os.Open(j.Source.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(j.Target.Path)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	defer dst.Close()

	enc, err := zstd.NewWriter(dst,
		zstd.WithEncoderLevel(EncoderLevel(level)),
		zstd.WithEncoderConcurrency(runtime.NumCPU()),
	)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	if _, err := io.Copy(enc, bufio.NewReaderSize(src, bufSize)); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress %s: %w", j.Source.Path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return dst.Close()
}

func (j *Job) decompressGzip() error {
	src, err := os.Open(j.Source.Path)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	// klauspost's reader is multistream by default, so concatenated members
	// decode as one stream.
	dec, err := gzip.NewReader(bufio.NewReaderSize(src, bufSize))
	if err != nil {
		return fmt.Errorf("failed to read gzip header: %w", err)
	}
	defer dec.Close()

	dst, err := os.Create(j.Target.Path)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	defer dst.Close()

	w := bufio.NewWriterSize(dst, bufSize)
	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("failed to decompress %s: %w", j.Source.Path, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return dst.Close()
}
