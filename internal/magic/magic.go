// Package magic implements the magic-number validator (spec §4.9,
// component C9): a simple-signature table (extension -> fixed bytes at
// offset 0) and a composite-format table (extension -> window/offset/
// validator), plus a "no-extension" inference mode that walks the
// reverse table at increasing window sizes. Grounded on the teacher's
// internal/engine/hash.go open-read-at-offset discipline, generalized
// from streaming a whole file to reading one fixed window.
package magic

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dchecker/datachecker/internal/scanerr"
)

// Outcome is the result of checking one file's content against its
// extension's expected signature.
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeMismatch
	OutcomeReadError
	OutcomeUnrecognized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "ok"
	case OutcomeMismatch:
		return "magic-mismatch"
	case OutcomeReadError:
		return "read-error"
	default:
		return "unrecognized"
	}
}

// Result is the outcome of checking one file.
type Result struct {
	Path      string
	Extension string
	Outcome   Outcome
	Err       error
}

// Validator inspects a window of bytes read at a composite format's
// offset and reports whether it matches the format.
type Validator func(window []byte) bool

// Composite describes a format whose signature isn't a single fixed
// byte run at offset 0: how many bytes to read, where to seek first,
// and how to judge the window once read.
type Composite struct {
	WindowSize int
	Offset     int64
	Validate   Validator
}

// SimpleSignatures maps a lowercase extension (without the leading
// dot) to the exact byte sequence expected at offset 0.
var SimpleSignatures = map[string][]byte{
	"png":   {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	"jpg":   {0xFF, 0xD8, 0xFF},
	"jpeg":  {0xFF, 0xD8, 0xFF},
	"pdf":   []byte("%PDF-"),
	"bmp":   []byte("BM"),
	"class": {0xCA, 0xFE, 0xBA, 0xBE},
	"flac":  []byte("fLaC"),
	"rar":   []byte("Rar!\x1a\x07"),
	"7z":    {'7', 'z', 0xBC, 0xAF, 0x27, 0x1C},
	"gz":    {0x1F, 0x8B},
}

// CompositeFormats maps a lowercase extension (without the leading
// dot) to its window/offset/validator triple. Every format spec §4.9
// names by name is represented here.
var CompositeFormats = map[string]Composite{
	"avi":  {WindowSize: 12, Offset: 0, Validate: riffSubtype("AVI ")},
	"avif": {WindowSize: 12, Offset: 0, Validate: ftypBrand("avif")},
	"docx": {WindowSize: 4, Offset: 0, Validate: zipSignature},
	"xlsx": {WindowSize: 4, Offset: 0, Validate: zipSignature},
	"pptx": {WindowSize: 4, Offset: 0, Validate: zipSignature},
	"jar":  {WindowSize: 4, Offset: 0, Validate: zipSignature},
	"zip":  {WindowSize: 4, Offset: 0, Validate: zipSignature},
	"eot":  {WindowSize: 2, Offset: 34, Validate: exact([]byte("LP"))},
	"gif":  {WindowSize: 6, Offset: 0, Validate: gifSignature},
	"htm":  {WindowSize: 15, Offset: 0, Validate: htmlSignature},
	"html": {WindowSize: 15, Offset: 0, Validate: htmlSignature},
	"iso":  {WindowSize: 5, Offset: 32769, Validate: exact([]byte("CD001"))},
	"mov":  {WindowSize: 12, Offset: 0, Validate: movSignature},
	"mp3":  {WindowSize: 3, Offset: 0, Validate: mp3Signature},
	"mp4":  {WindowSize: 8, Offset: 0, Validate: ftypBox},
	"tar":  {WindowSize: 5, Offset: 257, Validate: tarSignature},
	"tiff": {WindowSize: 4, Offset: 0, Validate: tiffSignature},
	"wav":  {WindowSize: 12, Offset: 0, Validate: riffSubtype("WAVE")},
	"webp": {WindowSize: 12, Offset: 0, Validate: riffSubtype("WEBP")},
}

func exact(sig []byte) Validator {
	return func(window []byte) bool {
		return bytes.Equal(window, sig)
	}
}

func riffSubtype(subtype string) Validator {
	return func(window []byte) bool {
		if len(window) < 12 {
			return false
		}
		return bytes.Equal(window[0:4], []byte("RIFF")) && bytes.Equal(window[8:12], []byte(subtype))
	}
}

func zipSignature(window []byte) bool {
	if len(window) < 4 {
		return false
	}
	local := []byte{'P', 'K', 0x03, 0x04}
	empty := []byte{'P', 'K', 0x05, 0x06}
	spanned := []byte{'P', 'K', 0x07, 0x08}
	return bytes.Equal(window[:4], local) || bytes.Equal(window[:4], empty) || bytes.Equal(window[:4], spanned)
}

func gifSignature(window []byte) bool {
	if len(window) < 6 {
		return false
	}
	return bytes.Equal(window[:3], []byte("GIF")) && (bytes.Equal(window[3:6], []byte("87a")) || bytes.Equal(window[3:6], []byte("89a")))
}

func htmlSignature(window []byte) bool {
	lower := bytes.ToLower(window)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<!doctype html"))
}

func movSignature(window []byte) bool {
	if len(window) < 8 {
		return false
	}
	// A QuickTime-brand ftyp box, distinct from the generic "isom"-
	// family brands MP4 containers use.
	if bytes.Equal(window[4:8], []byte("ftyp")) {
		return len(window) >= 12 && bytes.Equal(window[8:12], []byte("qt  "))
	}
	for _, atom := range [][]byte{[]byte("moov"), []byte("mdat"), []byte("free"), []byte("wide"), []byte("pnot"), []byte("skip")} {
		if bytes.Equal(window[4:8], atom) {
			return true
		}
	}
	return false
}

func mp3Signature(window []byte) bool {
	if len(window) >= 3 && bytes.Equal(window[:3], []byte("ID3")) {
		return true
	}
	if len(window) >= 2 {
		// MPEG audio frame sync: 11 set bits.
		return window[0] == 0xFF && window[1]&0xE0 == 0xE0
	}
	return false
}

func ftypBox(window []byte) bool {
	return len(window) >= 8 && bytes.Equal(window[4:8], []byte("ftyp"))
}

func ftypBrand(brand string) Validator {
	return func(window []byte) bool {
		return len(window) >= 12 && bytes.Equal(window[4:8], []byte("ftyp")) && bytes.Equal(window[8:12], []byte(brand))
	}
}

func tarSignature(window []byte) bool {
	return len(window) >= 5 && bytes.Equal(window[:5], []byte("ustar"))
}

func tiffSignature(window []byte) bool {
	if len(window) < 4 {
		return false
	}
	le := []byte{'I', 'I', '*', 0x00}
	be := []byte{'M', 'M', 0x00, '*'}
	return bytes.Equal(window, le) || bytes.Equal(window, be)
}

// Check reads the extension of path, looks it up in the simple and
// composite tables in that order, and reports whether the file's
// content matches. An unrecognized extension yields OutcomeUnrecognized
// with a nil error and no report, per spec §4.9.
func Check(path string) Result {
	ext := extensionOf(path)
	res := Result{Path: path, Extension: ext}

	if sig, ok := SimpleSignatures[ext]; ok {
		window, err := readWindow(path, 0, len(sig))
		if err != nil {
			res.Outcome = OutcomeReadError
			res.Err = err
			return res
		}
		if bytes.Equal(window, sig) {
			res.Outcome = OutcomeMatch
		} else {
			res.Outcome = OutcomeMismatch
		}
		return res
	}

	if c, ok := CompositeFormats[ext]; ok {
		window, err := readWindow(path, c.Offset, c.WindowSize)
		if err != nil {
			res.Outcome = OutcomeReadError
			res.Err = err
			return res
		}
		if c.Validate(window) {
			res.Outcome = OutcomeMatch
		} else {
			res.Outcome = OutcomeMismatch
		}
		return res
	}

	res.Outcome = OutcomeUnrecognized
	return res
}

func extensionOf(path string) string {
	ext := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func readWindow(path string, offset int64, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenErr(path, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, scanerr.New(scanerr.KindReadError, path, err)
		}
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(f, buf)
	if err != nil {
		return nil, scanerr.New(scanerr.KindReadError, path, err)
	}
	return buf[:n], nil
}

func wrapOpenErr(path string, err error) error {
	if os.IsNotExist(err) {
		return scanerr.New(scanerr.KindFileNotFound, path, err)
	}
	if os.IsPermission(err) {
		return scanerr.New(scanerr.KindAccessDenied, path, err)
	}
	return scanerr.New(scanerr.KindReadError, path, err)
}

// sortedSimpleExtensions returns SimpleSignatures' keys grouped by
// signature length then sorted, so InferType's iteration order is
// deterministic across runs.
func sortedSimpleExtensions() []string {
	exts := make([]string, 0, len(SimpleSignatures))
	for ext := range SimpleSignatures {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		li, lj := len(SimpleSignatures[exts[i]]), len(SimpleSignatures[exts[j]])
		if li != lj {
			return li < lj
		}
		return exts[i] < exts[j]
	})
	return exts
}

func sortedCompositeExtensions() []string {
	exts := make([]string, 0, len(CompositeFormats))
	for ext := range CompositeFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// InferType implements the "no-extension" mode of spec §4.9: try the
// reverse simple-signature table at increasing window sizes 2..16,
// then fall back to the composite validators, returning the first
// matching extension label. found=false means format-unknown.
func InferType(path string) (label string, found bool, err error) {
	head, err := readWindow(path, 0, 16)
	if err != nil {
		if se, ok := err.(*scanerr.Error); ok && se.Kind == scanerr.KindReadError {
			// A short file simply can't match a 16-byte read; fall
			// back to reading as much as is available.
			head = shortHeadOrEmpty(path)
		} else {
			return "", false, err
		}
	}

	for win := 2; win <= 16; win++ {
		if win > len(head) {
			break
		}
		for _, ext := range sortedSimpleExtensions() {
			sig := SimpleSignatures[ext]
			if len(sig) != win {
				continue
			}
			if bytes.Equal(head[:win], sig) {
				return ext, true, nil
			}
		}
	}

	for _, ext := range sortedCompositeExtensions() {
		c := CompositeFormats[ext]
		window, werr := readWindow(path, c.Offset, c.WindowSize)
		if werr != nil {
			continue
		}
		if c.Validate(window) {
			return ext, true, nil
		}
	}

	return "", false, nil
}

func shortHeadOrEmpty(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, 16)
	n, _ := f.Read(buf)
	return buf[:n]
}
