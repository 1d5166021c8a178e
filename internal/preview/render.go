package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/BourgeoisBear/rasterm"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pders01/pixl/internal/config"
	"github.com/pders01/pixl/internal/debuglog"
	"github.com/pders01/pixl/internal/validation"
)

const (
	defaultMaxWidth = 640
	maxImageBytes   = 20 << 20
	fetchTimeout    = 20 * time.Second
)

// ErrUnsupported is returned when the terminal cannot show images.
var ErrUnsupported = errors.New("terminal does not support inline images")

// Renderer downloads an image and encodes it as terminal escapes.
type Renderer struct {
	client    *http.Client
	urls      *validation.URLValidator
	cap       Capability
	maxWidth  int
	userAgent string
}

type Option func(*Renderer)

// WithHTTPClient replaces the download client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Renderer) { r.client = c }
}

// WithURLValidator replaces the validator image URLs are checked with.
func WithURLValidator(v *validation.URLValidator) Option {
	return func(r *Renderer) { r.urls = v }
}

func NewRenderer(cap Capability, cfg *config.Config, opts ...Option) *Renderer {
	width := cfg.UI.PreviewWidth
	if width <= 0 {
		width = defaultMaxWidth
	}

	r := &Renderer{
		client:    &http.Client{Timeout: fetchTimeout},
		urls:      validation.NewURLValidator(),
		cap:       cap,
		maxWidth:  width,
		userAgent: cfg.Provider.UserAgent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Capability() Capability { return r.cap }

// Enabled reports whether Render can produce output at all.
func (r *Renderer) Enabled() bool { return r.cap != CapNone }

// Render fetches url and returns the escape sequence that draws it.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if r.cap == CapNone {
		return "", ErrUnsupported
	}
	if err := r.urls.ValidateImageURL(url); err != nil {
		return "", err
	}

	start := time.Now()
	img, err := r.download(ctx, url)
	if err != nil {
		return "", err
	}
	img = scaleToWidth(img, r.maxWidth)

	out, err := Encode(img, r.cap)
	if err != nil {
		return "", err
	}
	debuglog.Debugf("preview: rendered %s as %s (%d bytes) in %s", url, r.cap, len(out), time.Since(start))
	return out, nil
}

func (r *Renderer) download(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// Encode writes img in the given protocol.
func Encode(img image.Image, cap Capability) (string, error) {
	var buf bytes.Buffer
	var err error
	switch cap {
	case CapKitty:
		err = rasterm.KittyWriteImage(&buf, img, rasterm.KittyImgOpts{})
	case CapITerm:
		err = rasterm.ItermWriteImage(&buf, img)
	case CapSixel:
		err = rasterm.SixelWriteImage(&buf, toPaletted(img))
	default:
		return "", ErrUnsupported
	}
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// scaleToWidth shrinks img to maxWidth keeping its aspect ratio.
func scaleToWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth || w == 0 {
		return img
	}

	nh := h * maxWidth / w
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// toPaletted maps img onto a 6x6x6 cube plus a gray ramp for Sixel.
func toPaletted(img image.Image) *image.Paletted {
	palette := make(color.Palette, 0, 256)
	for r := 0; r < 6; r++ {
		for g := 0; g < 6; g++ {
			for b := 0; b < 6; b++ {
				palette = append(palette, color.RGBA{R: uint8(r * 51), G: uint8(g * 51), B: uint8(b * 51), A: 255})
			}
		}
	}
	for i := 0; i < 40; i++ {
		gray := uint8(i * 255 / 39)
		palette = append(palette, color.RGBA{R: gray, G: gray, B: gray, A: 255})
	}

	bounds := img.Bounds()
	p := image.NewPaletted(bounds, palette)
	draw.FloydSteinberg.Draw(p, bounds, img, bounds.Min)
	return p
}
