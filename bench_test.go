package zipper

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"

	benchDirCount = 16
)

func BenchmarkArchive(b *testing.B) {
	cases := []struct {
		name        string
		fileCount   int
		fileSize    int
		compression Compression
		pattern     benchPattern
	}{
		{
			name:        "files=128/size=16k/store/compressible",
			fileCount:   128,
			fileSize:    16 << 10,
			compression: CompressionStore,
			pattern:     benchPatternCompressible,
		},
		{
			name:        "files=128/size=16k/deflate/compressible",
			fileCount:   128,
			fileSize:    16 << 10,
			compression: CompressionDeflate,
			pattern:     benchPatternCompressible,
		},
		{
			name:        "files=128/size=16k/zstd/compressible",
			fileCount:   128,
			fileSize:    16 << 10,
			compression: CompressionZstd,
			pattern:     benchPatternCompressible,
		},
		{
			name:        "files=128/size=16k/deflate/random",
			fileCount:   128,
			fileSize:    16 << 10,
			compression: CompressionDeflate,
			pattern:     benchPatternRandom,
		},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			src := b.TempDir()
			makeBenchFiles(b, src, bc.fileCount, bc.fileSize, bc.pattern)
			dest := filepath.Join(b.TempDir(), "out.zip")

			b.SetBytes(int64(bc.fileCount * bc.fileSize))
			z := NewZip(ZipWithCompression(bc.compression))
			z.AddFolder(src, "")

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if err := z.Archive(context.Background(), dest); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExtract(b *testing.B) {
	cases := []struct {
		name        string
		fileCount   int
		fileSize    int
		compression Compression
	}{
		{name: "files=128/size=16k/store", fileCount: 128, fileSize: 16 << 10, compression: CompressionStore},
		{name: "files=128/size=16k/deflate", fileCount: 128, fileSize: 16 << 10, compression: CompressionDeflate},
		{name: "files=128/size=16k/zstd", fileCount: 128, fileSize: 16 << 10, compression: CompressionZstd},
		{name: "files=1024/size=1k/deflate", fileCount: 1024, fileSize: 1 << 10, compression: CompressionDeflate},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			src := b.TempDir()
			makeBenchFiles(b, src, bc.fileCount, bc.fileSize, benchPatternCompressible)
			archive := filepath.Join(b.TempDir(), "in.zip")
			z := NewZip(ZipWithCompression(bc.compression))
			z.AddFolder(src, "")
			if err := z.Archive(context.Background(), archive); err != nil {
				b.Fatal(err)
			}
			dest := b.TempDir()

			b.SetBytes(int64(bc.fileCount * bc.fileSize))
			u := NewUnzip(UnzipWithOverwrite(true))

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if err := u.Extract(context.Background(), archive, dest); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func makeBenchFiles(b *testing.B, dir string, fileCount, fileSize int, pattern benchPattern) {
	b.Helper()

	rng := rand.New(rand.NewSource(1))
	for i := range fileCount {
		relPath := fmt.Sprintf("dir%02d/file%05d.dat", i%benchDirCount, i)
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			b.Fatal(err)
		}

		content := make([]byte, fileSize)
		switch pattern {
		case benchPatternRandom:
			if _, err := rng.Read(content); err != nil {
				b.Fatal(err)
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}

		if err := os.WriteFile(fullPath, content, 0o644); err != nil {
			b.Fatal(err)
		}
	}
}
