package domain

import dErrors "till/pkg/domain-errors"

// RecognitionMethod records how a cart line's product was identified.
type RecognitionMethod string

func (m RecognitionMethod) String() string { return string(m) }

const (
	RecognitionManual  RecognitionMethod = "manual"
	RecognitionVision  RecognitionMethod = "vision"
	RecognitionBarcode RecognitionMethod = "barcode"
)

// ParseRecognitionMethod validates a method string.
func ParseRecognitionMethod(s string) (RecognitionMethod, error) {
	switch RecognitionMethod(s) {
	case RecognitionManual, RecognitionVision, RecognitionBarcode:
		return RecognitionMethod(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown recognition method %q", s)
}

// ValidConfidence reports whether a recognition confidence is in [0, 1].
// The score is produced elsewhere (or entered as 1.0 for manual lines); the
// core only stores it.
func ValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}
