// Package metadatatest writes small JPEG fixtures carrying EXIF GPS and
// capture-time tags, for tests of packages that read them.
package metadatatest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Options describes the fixture to write. Zero fields are omitted from EXIF.
type Options struct {
	Width, Height int
	GPS           *[2]float64 // lat, lng
	CapturedAt    time.Time
	Orientation   int
	// Seed varies pixel content so fixtures with the same size hash differently.
	Seed uint8
}

// WriteJPEG writes a JPEG with an EXIF APP1 segment to path.
func WriteJPEG(t testing.TB, path string, opts Options) {
	t.Helper()

	if opts.Width == 0 {
		opts.Width = 64
	}
	if opts.Height == 0 {
		opts.Height = 48
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	for y := 0; y < opts.Height; y++ {
		for x := 0; x < opts.Width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / opts.Width),
				G: uint8((y * 255) / opts.Height),
				B: opts.Seed,
				A: 255,
			})
		}
	}

	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	tiff := EXIF(opts)
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8})
	if len(tiff) > 0 {
		out.Write([]byte{0xFF, 0xE1})
		seg := append([]byte("Exif\x00\x00"), tiff...)
		_ = binary.Write(&out, binary.BigEndian, uint16(len(seg)+2))
		out.Write(seg)
	}
	out.Write(enc.Bytes()[2:]) // drop the encoder's SOI

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func ifdSize(entries []entry) uint32 {
	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += uint32(len(e.data))
		}
	}
	return n
}

// writeIFD lays out entries at offset start, spilling values longer than
// four bytes directly after the directory.
func writeIFD(buf *bytes.Buffer, start uint32, entries []entry) {
	le := binary.LittleEndian
	_ = binary.Write(buf, le, uint16(len(entries)))
	spill := start + uint32(2+12*len(entries)+4)
	var extra bytes.Buffer
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if len(e.data) > 4 {
			_ = binary.Write(buf, le, spill+uint32(extra.Len()))
			extra.Write(e.data)
			continue
		}
		v := make([]byte, 4)
		copy(v, e.data)
		buf.Write(v)
	}
	_ = binary.Write(buf, le, uint32(0))
	buf.Write(extra.Bytes())
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func rationalDegrees(v float64) []byte {
	const denom = 1000000
	b := make([]byte, 0, 24)
	b = append(b, u32(uint32(math.Round(math.Abs(v)*denom)))...)
	b = append(b, u32(denom)...)
	for i := 0; i < 2; i++ {
		b = append(b, u32(0)...)
		b = append(b, u32(1)...)
	}
	return b
}

// EXIF returns a little-endian TIFF block holding the tags in opts, or nil
// when opts carries none.
func EXIF(opts Options) []byte {
	var ifd0, exifIFD, gpsIFD []entry

	if opts.Orientation != 0 {
		v := make([]byte, 2)
		binary.LittleEndian.PutUint16(v, uint16(opts.Orientation))
		ifd0 = append(ifd0, entry{0x0112, typeShort, 1, v})
	}
	if !opts.CapturedAt.IsZero() {
		s := append([]byte(opts.CapturedAt.Format("2006:01:02 15:04:05")), 0)
		exifIFD = append(exifIFD, entry{0x9003, typeASCII, uint32(len(s)), s})
	}
	if opts.GPS != nil {
		latRef, lngRef := "N", "E"
		if opts.GPS[0] < 0 {
			latRef = "S"
		}
		if opts.GPS[1] < 0 {
			lngRef = "W"
		}
		gpsIFD = []entry{
			{0x0001, typeASCII, 2, []byte(latRef + "\x00")},
			{0x0002, typeRational, 3, rationalDegrees(opts.GPS[0])},
			{0x0003, typeASCII, 2, []byte(lngRef + "\x00")},
			{0x0004, typeRational, 3, rationalDegrees(opts.GPS[1])},
		}
	}
	if len(ifd0) == 0 && len(exifIFD) == 0 && len(gpsIFD) == 0 {
		return nil
	}

	// Pointer entries go into IFD0; their values depend on the layout below.
	ptrCount := 0
	if len(exifIFD) > 0 {
		ptrCount++
	}
	if len(gpsIFD) > 0 {
		ptrCount++
	}
	ifd0Start := uint32(8)
	ifd0Len := ifdSize(ifd0) + uint32(12*ptrCount)
	exifStart := ifd0Start + ifd0Len
	gpsStart := exifStart
	if len(exifIFD) > 0 {
		gpsStart += ifdSize(exifIFD)
		ifd0 = append(ifd0, entry{0x8769, typeLong, 1, u32(exifStart)})
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, entry{0x8825, typeLong, 1, u32(gpsStart)})
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, binary.LittleEndian, uint16(42))
	_ = binary.Write(&buf, binary.LittleEndian, ifd0Start)
	writeIFD(&buf, ifd0Start, ifd0)
	if len(exifIFD) > 0 {
		writeIFD(&buf, exifStart, exifIFD)
	}
	if len(gpsIFD) > 0 {
		writeIFD(&buf, gpsStart, gpsIFD)
	}
	return buf.Bytes()
}

// WritePlain writes arbitrary bytes to path, for non-image fixtures.
func WritePlain(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}
