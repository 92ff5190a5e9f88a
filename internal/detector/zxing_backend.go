package detector

import (
	"fmt"
	"sync"

	"github.com/anime-shed/certscan-go/internal/frame"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ZXingBackend decodes QR symbols with gozxing
type ZXingBackend struct {
	mu     sync.Mutex
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

// NewZXingBackend creates a QR reader. tryHarder spends more time per frame.
func NewZXingBackend(tryHarder bool) *ZXingBackend {
	hints := map[gozxing.DecodeHintType]interface{}{}
	if tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return &ZXingBackend{
		reader: qrcode.NewQRCodeReader(),
		hints:  hints,
	}
}

// Decode reads the symbol text. Every reader failure maps to ErrNoSymbol.
func (b *ZXingBackend) Decode(f *frame.Frame) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(f.Gray())
	if err != nil {
		return "", fmt.Errorf("%w: binarize: %v", ErrNoSymbol, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.reader.Reset()

	result, err := b.reader.Decode(bmp, b.hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSymbol, err)
	}
	if result.GetText() == "" {
		return "", ErrNoSymbol
	}
	return result.GetText(), nil
}
