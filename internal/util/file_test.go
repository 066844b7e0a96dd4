package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffDocumentType(t *testing.T) {
	r := bytes.NewReader([]byte("%PDF-1.7\n..."))
	mt, err := SniffDocumentType(r, AllowedDocumentTypes)
	require.NoError(t, err)
	assert.Equal(t, MimePDF, mt)

	// 读取后回到开头
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\n...", string(rest))

	mt, err = SniffDocumentType(bytes.NewReader([]byte("hola mundo")), AllowedDocumentTypes)
	require.NoError(t, err)
	assert.Equal(t, MimeText, mt)

	_, err = SniffDocumentType(bytes.NewReader([]byte("<html><body>x</body></html>")), AllowedDocumentTypes)
	assert.Error(t, err)
}

func TestDocumentExt(t *testing.T) {
	assert.Equal(t, ".pdf", DocumentExt("Informe.PDF"))
	assert.Equal(t, ".docx", DocumentExt("a/b/tarea.docx"))
	assert.Equal(t, "", DocumentExt("sin-extension"))
	assert.Equal(t, ".sh", DocumentExt("x.s\"h"))
}
