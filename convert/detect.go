package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"scs/ass"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF sniffs the byte-order mark at the beginning of buf. UTF-32 marks
// are checked before UTF-16 since a UTF-32LE BOM starts with a UTF-16LE one.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	default:
		return encUnknown
	}
}

// selectReader wraps r with a decoder matching detected encoding. For UTF-8
// and undetected input the reader is returned as is, the parser strips a
// leading BOM itself.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		return r
	}
}

// isArchiveFile checks if the file is a zip archive: extension first, then
// content sniffing so a renamed text file does not get opened as zip.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 262)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	return filetype.IsType(buf[:n], matchers.TypeZip), nil
}

// isScriptFile checks if the file looks like an ASS/SSA script and detects
// its unicode encoding from the BOM when present.
func isScriptFile(path string) (bool, srcEncoding, error) {
	if !hasScriptExt(path) {
		return false, encUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, encUnknown, err
	}
	return true, detectUTF(buf[:n]), nil
}

// isScriptInArchive is isScriptFile for a zip archive member.
func isScriptInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !hasScriptExt(f.FileHeader.Name) {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	buf := make([]byte, 4)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, encUnknown, err
	}
	return true, detectUTF(buf[:n]), nil
}

func hasScriptExt(path string) bool {
	ext := filepath.Ext(path)
	return strings.EqualFold(ext, ".ass") || strings.EqualFold(ext, ".ssa")
}

// decodeScript converts raw script bytes to a string. With a forced encoding
// only that encoding is attempted. Otherwise candidates are tried in a fixed
// priority order: the BOM-indicated encoding, plain UTF-8, then UTF-16 in
// both byte orders. Failing every candidate is a parse failure.
func decodeScript(data []byte, forced encoding.Encoding) (string, error) {
	if forced != nil {
		out, err := forced.NewDecoder().Bytes(data)
		if err != nil {
			return "", &ass.ParseError{Reason: "unable to decode input with requested encoding", Err: err}
		}
		return string(out), nil
	}

	if enc := detectUTF(data); enc != encUnknown {
		if enc == encUTF8 {
			return string(data[3:]), nil
		}
		out, err := io.ReadAll(selectReader(strings.NewReader(string(data)), enc))
		if err != nil {
			return "", &ass.ParseError{Reason: "unable to decode input despite byte-order mark", Err: err}
		}
		return string(out), nil
	}

	// BOM-less UTF-16 text made of low code points is byte-for-byte valid
	// UTF-8, the embedded NUL bytes give it away
	if utf8.Valid(data) && !bytes.ContainsRune(data, 0) {
		return string(data), nil
	}

	for _, enc := range []srcEncoding{encUTF16LittleEndian, encUTF16BigEndian} {
		if len(data)%2 != 0 {
			break
		}
		out, err := io.ReadAll(selectReader(strings.NewReader(string(data)), enc))
		if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
			continue
		}
		return string(out), nil
	}

	return "", &ass.ParseError{Reason: fmt.Sprintf("unable to decode %d input bytes with any attempted encoding", len(data))}
}
