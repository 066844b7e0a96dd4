package util

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// SniffDocumentType 按文件头识别类型并回到起始位置，返回去掉参数的 MIME
func SniffDocumentType(rs io.ReadSeeker, allowed []string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(rs, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	detected := http.DetectContentType(head[:n])
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		mediaType = detected
	}
	for _, prefix := range allowed {
		if strings.HasPrefix(mediaType, prefix) {
			return mediaType, nil
		}
	}
	return mediaType, fmt.Errorf("document type %s is not allowed", mediaType)
}

// DocumentExt 小写扩展名，只保留字母数字
func DocumentExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	clean := strings.Map(func(r rune) rune {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	if len(clean) <= 1 || len(clean) > 10 {
		return ""
	}
	return clean
}
