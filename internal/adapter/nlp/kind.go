package nlp

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/job-match-scorer/internal/domain"
)

// sniffChars is enough base64 to decode the bytes mimetype inspects.
const sniffChars = 4096

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// StripDataURL removes a "data:<mime>;base64," prefix and returns the payload
// together with the declared MIME type ("" when there was no prefix).
func StripDataURL(resume string) (payload, declared string) {
	if !strings.HasPrefix(resume, "data:") {
		return resume, ""
	}
	comma := strings.IndexByte(resume, ',')
	if comma < 0 {
		return resume, ""
	}
	meta := strings.TrimPrefix(resume[:comma], "data:")
	declared, _, _ = strings.Cut(meta, ";")
	return resume[comma+1:], declared
}

// DetectFileKind sniffs the decoded head of a base64 resume. Anything that is
// not recognisably a Word document is treated as PDF.
func DetectFileKind(resume string) domain.FileKind {
	payload, declared := StripDataURL(resume)
	if k, ok := kindFromMIME(declared); ok {
		return k
	}
	head := payload
	if len(head) > sniffChars {
		head = head[:sniffChars]
	}
	head = head[:len(head)-len(head)%4]
	raw, err := base64.StdEncoding.DecodeString(head)
	if err != nil || len(raw) == 0 {
		return domain.FileKindPDF
	}
	if k, ok := kindFromMIME(mimetype.Detect(raw).String()); ok {
		return k
	}
	return domain.FileKindPDF
}

func kindFromMIME(m string) (domain.FileKind, bool) {
	m, _, _ = strings.Cut(strings.ToLower(strings.TrimSpace(m)), ";")
	switch m {
	case "application/pdf":
		return domain.FileKindPDF, true
	case docxMIME, "application/msword":
		return domain.FileKindDOCX, true
	}
	return "", false
}
