package archive

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildArchive assembles a minimal LEG file in memory: the concatenated
// bodies of `files` in order, followed by the directory table and trailer.
func buildArchive(t *testing.T, files map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer

	offsets := make(map[string]int64, len(files))
	for _, name := range order {
		offsets[name] = int64(buf.Len())
		buf.Write(files[name])
	}

	tableStart := int64(buf.Len())
	buf.WriteString(endTableMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(len(order))))
	for _, name := range order {
		buf.WriteString(name)
		buf.WriteByte(0)
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, offsets[name]))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(len(files[name]))))
	}

	require.NoError(t, binary.Write(&buf, binary.LittleEndian, tableStart))
	return buf.Bytes()
}

func writeArchive(t *testing.T, files map[string][]byte, order []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.leg")
	require.NoError(t, os.WriteFile(path, buildArchive(t, files, order), 0o644))
	return path
}

func TestOpenAndReadCaseSensitive(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		"bg1.png":   []byte("first image bytes"),
		"theme.ogg": []byte("second file bytes, longer"),
	}, []string{"bg1.png", "theme.ogg"})

	a, err := Open(path, true)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.Read("bg1.png")
	require.NoError(t, err)
	require.Equal(t, "first image bytes", string(got))

	got, err = a.Read("theme.ogg")
	require.NoError(t, err)
	require.Equal(t, "second file bytes, longer", string(got))

	got, err = a.Read("BG1.PNG")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestOpenAndReadCaseInsensitive(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		"Bg1.png": []byte("data"),
	}, []string{"Bg1.png"})

	a, err := Open(path, false)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.Read("BG1.PNG")
	require.NoError(t, err)
	require.Equal(t, "data", string(got))
}

func TestReadMissingEntry(t *testing.T) {
	path := writeArchive(t, map[string][]byte{"a.txt": []byte("x")}, []string{"a.txt"})
	a, err := Open(path, true)
	require.NoError(t, err)
	defer a.Close()

	data, err := a.Read("missing.txt")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestNames(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		"one.png": []byte("1"),
		"two.png": []byte("22"),
	}, []string{"one.png", "two.png"})

	a, err := Open(path, true)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, []string{"one.png", "two.png"}, a.Names())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("payload")
	buf.WriteString("NOTALEGTBL")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(0)))
	tableStart := int64(len("payload"))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, tableStart))

	path := filepath.Join(t.TempDir(), "bad.leg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err := Open(path, true)
	require.Error(t, err)
}

func TestOpenRejectsTooSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.leg")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	_, err := Open(path, true)
	require.Error(t, err)
}
