package evidence

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Renderer produces a viewable transcript image from a list of incidents and
// returns the path of the written file. Implementations are pluggable so the
// engine's tests can substitute a stub.
type Renderer interface {
	Render(incidents []Incident, senderName, receiverName string) (string, error)
}

const (
	transcriptWidth = 800
	headerHeight    = 60
	bubbleHeight    = 80
	bubbleWidth     = 500
	padding         = 20
)

var (
	backgroundColor = color.RGBA{245, 245, 245, 255}
	headerColor     = color.RGBA{25, 118, 210, 255}
	bubbleColor     = color.RGBA{255, 235, 238, 255}
	borderColor     = color.RGBA{211, 47, 47, 255}
	warningColor    = color.RGBA{211, 47, 47, 255}
	timeColor       = color.RGBA{117, 117, 117, 255}
	white           = color.RGBA{255, 255, 255, 255}
)

// TranscriptRenderer draws flagged messages as chat bubbles into a PNG file.
type TranscriptRenderer struct {
	outputDir string
}

func NewTranscriptRenderer(outputDir string) *TranscriptRenderer {
	return &TranscriptRenderer{outputDir: outputDir}
}

func (r *TranscriptRenderer) Render(incidents []Incident, senderName, receiverName string) (string, error) {
	if len(incidents) == 0 {
		return "", fmt.Errorf("no incidents to render")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshots dir: %w", err)
	}

	height := headerHeight + padding*2 + len(incidents)*(bubbleHeight+10)
	img := image.NewRGBA(image.Rect(0, 0, transcriptWidth, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	r.drawHeader(img, senderName, receiverName)

	y := headerHeight + padding
	for _, inc := range incidents {
		r.drawBubble(img, inc, y)
		y += bubbleHeight + 10
	}

	filename := fmt.Sprintf("chat_evidence_%s.png", time.Now().Format("20060102_150405.000"))
	path := filepath.Join(r.outputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	return path, nil
}

func (r *TranscriptRenderer) drawHeader(img *image.RGBA, senderName, receiverName string) {
	draw.Draw(img, image.Rect(0, 0, transcriptWidth, headerHeight), &image.Uniform{headerColor}, image.Point{}, draw.Src)
	drawLabel(img, fmt.Sprintf("Chat: %s - %s", senderName, receiverName), padding, 30, white)
	drawLabel(img, "Generated: "+time.Now().Format("2006-01-02 15:04:05"), transcriptWidth-260, 48, white)
}

func (r *TranscriptRenderer) drawBubble(img *image.RGBA, inc Incident, y int) {
	x := padding
	fillRect(img, x, y, x+bubbleWidth, y+bubbleHeight, bubbleColor)
	strokeRect(img, x, y, x+bubbleWidth, y+bubbleHeight, borderColor)

	drawLabel(img, "ABUSIVE CONTENT DETECTED", x+10, y+15, warningColor)
	drawLabel(img, fmt.Sprintf("Type: %s | Score: %.1f/10", inc.Category, inc.Score), x+10, y+30, warningColor)

	drawLabel(img, truncate(inc.Content, 60), x+10, y+52, color.RGBA{66, 66, 66, 255})
	drawLabel(img, inc.Timestamp.Format("15:04"), x+bubbleWidth-50, y+bubbleHeight-10, timeColor)
}

// truncate shortens text to max runes, cutting on a rune boundary so a
// multi-byte character is never split mid-sequence.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func drawLabel(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{c}, image.Point{}, draw.Src)
}

func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	for x := x0; x < x1; x++ {
		img.Set(x, y0, c)
		img.Set(x, y1-1, c)
	}
	for y := y0; y < y1; y++ {
		img.Set(x0, y, c)
		img.Set(x1-1, y, c)
	}
}
