package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeZip   = "application/zip"
	MimeText  = "text/plain"
)

// AllowedDocumentTypes 作业文档允许的类型，docx/xlsx 会被识别为 zip
var AllowedDocumentTypes = []string{MimePDF, MimeImage, MimeZip, MimeText}

// MaxDocumentSize 作业文档上限 20MB
const MaxDocumentSize = 20 << 20
